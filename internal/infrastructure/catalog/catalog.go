// Package catalog carga bodegas y variaciones desde el XML que exporta el ERP del negocio.
//
// Formato esperado (ISO-8859-1 o UTF-8):
//
//	<catalogo negocio="biz-1">
//	  <bodega id="loc-a" nombre="Bodega Central" direccion="Cra 1 # 2-3"/>
//	  <variacion id="var-a" producto="prod-a" sku="SKU-A" nombre="Talla M" serializada="false"/>
//	</catalogo>
package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Catalog bodegas y variaciones de un negocio.
type Catalog struct {
	BusinessID string
	Locations  []entity.Location
	Variations []entity.Variation
}

// Load abre y parsea el archivo indicado.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(charset) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "WINDOWS-1252", "CP1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	}
	return input, nil
}

// Parse lee el XML. Ids repetidos o atributos obligatorios vacíos son error.
func Parse(r io.Reader) (*Catalog, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("decodificar XML: %w", err)
	}
	root := doc.SelectElement("catalogo")
	if root == nil {
		return nil, fmt.Errorf("catálogo: falta el elemento <catalogo>")
	}
	c := &Catalog{BusinessID: strings.TrimSpace(root.SelectAttrValue("negocio", ""))}
	if c.BusinessID == "" {
		return nil, fmt.Errorf("catálogo: atributo negocio vacío")
	}

	seen := map[string]bool{}
	for _, el := range root.SelectElements("bodega") {
		loc := entity.Location{
			ID:         attr(el, "id"),
			BusinessID: c.BusinessID,
			Name:       attr(el, "nombre"),
			Address:    attr(el, "direccion"),
			Active:     attr(el, "activa") != "false",
		}
		if loc.ID == "" || loc.Name == "" {
			return nil, fmt.Errorf("catálogo: bodega sin id o nombre (posición %d)", el.Index())
		}
		if seen["b:"+loc.ID] {
			return nil, fmt.Errorf("catálogo: bodega %s repetida", loc.ID)
		}
		seen["b:"+loc.ID] = true
		c.Locations = append(c.Locations, loc)
	}
	for _, el := range root.SelectElements("variacion") {
		v := entity.Variation{
			ID:         attr(el, "id"),
			BusinessID: c.BusinessID,
			ProductID:  attr(el, "producto"),
			SKU:        attr(el, "sku"),
			Name:       attr(el, "nombre"),
		}
		if v.ID == "" || v.ProductID == "" {
			return nil, fmt.Errorf("catálogo: variación sin id o producto")
		}
		if seen["v:"+v.ID] {
			return nil, fmt.Errorf("catálogo: variación %s repetida", v.ID)
		}
		seen["v:"+v.ID] = true
		if raw := attr(el, "serializada"); raw != "" {
			serialized, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("catálogo: variación %s: serializada=%q", v.ID, raw)
			}
			v.Serialized = serialized
		}
		c.Variations = append(c.Variations, v)
	}

	sort.Slice(c.Locations, func(i, j int) bool { return c.Locations[i].ID < c.Locations[j].ID })
	sort.Slice(c.Variations, func(i, j int) bool { return c.Variations[i].ID < c.Variations[j].ID })
	return c, nil
}

func attr(el *etree.Element, key string) string {
	return strings.TrimSpace(el.SelectAttrValue(key, ""))
}

// Seed crea lo que no exista todavía. Lo existente no se toca.
func (c *Catalog) Seed(ctx context.Context, repos repository.Repos) (created int, err error) {
	for i := range c.Locations {
		loc := c.Locations[i]
		existing, err := repos.Locations.GetByID(ctx, loc.ID)
		if err != nil {
			return created, fmt.Errorf("buscar bodega %s: %w", loc.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := repos.Locations.Create(ctx, &loc); err != nil {
			return created, fmt.Errorf("crear bodega %s: %w", loc.ID, err)
		}
		created++
	}
	for i := range c.Variations {
		v := c.Variations[i]
		existing, err := repos.Variations.GetByID(ctx, v.ID)
		if err != nil {
			return created, fmt.Errorf("buscar variación %s: %w", v.ID, err)
		}
		if existing != nil {
			continue
		}
		if err := repos.Variations.Create(ctx, &v); err != nil {
			return created, fmt.Errorf("crear variación %s: %w", v.ID, err)
		}
		created++
	}
	return created, nil
}

// SQL script idempotente (ON CONFLICT DO NOTHING) con el contenido del catálogo.
func (c *Catalog) SQL() string {
	var b strings.Builder
	b.WriteString("-- Catálogo del negocio " + c.BusinessID + "\n")
	b.WriteString("-- Generado por cmd/seed_catalog\n\n")
	if len(c.Locations) > 0 {
		b.WriteString("INSERT INTO locations (id, business_id, name, address, active) VALUES\n")
		for i, l := range c.Locations {
			sep := ",\n"
			if i == len(c.Locations)-1 {
				sep = "\n"
			}
			fmt.Fprintf(&b, "  (%s, %s, %s, %s, %t)%s", quote(l.ID), quote(l.BusinessID), quote(l.Name), quote(l.Address), l.Active, sep)
		}
		b.WriteString("ON CONFLICT (id) DO NOTHING;\n\n")
	}
	if len(c.Variations) > 0 {
		b.WriteString("INSERT INTO variations (id, business_id, product_id, sku, name, serialized) VALUES\n")
		for i, v := range c.Variations {
			sep := ",\n"
			if i == len(c.Variations)-1 {
				sep = "\n"
			}
			fmt.Fprintf(&b, "  (%s, %s, %s, %s, %s, %t)%s", quote(v.ID), quote(v.BusinessID), quote(v.ProductID), quote(v.SKU), quote(v.Name), v.Serialized, sep)
		}
		b.WriteString("ON CONFLICT (id) DO NOTHING;\n")
	}
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
