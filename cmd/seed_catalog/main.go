// seed_catalog genera un script SQL con las bodegas y variaciones del catálogo XML del negocio.
//
// Uso: go run ./cmd/seed_catalog [ruta/catalogo.xml] [salida.sql]
// Por defecto lee catalogo.xml del directorio actual.
// Escribe: internal/infrastructure/postgres/seed_catalog.sql
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/inventario-ledger/internal/infrastructure/catalog"
)

func main() {
	xmlPath := "catalogo.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seed_catalog.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	c, err := catalog.Load(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, []byte(c.SQL()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generado %s: %d bodegas, %d variaciones (negocio %s)\n",
		outPath, len(c.Locations), len(c.Variations), c.BusinessID)
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
