// Package docs registra la especificación OpenAPI de la API (servida en /docs).
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

// FilePath ruta del documento relativa a la raíz del repo.
const FilePath = "./docs/swagger.json"

//go:embed swagger.json
var docTemplate string

// SwaggerInfo metadatos de la especificación.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Inventario Ledger API",
	Description:      "Saldos por bodega con libro de movimientos, traslados, unidades serializadas y devoluciones.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
