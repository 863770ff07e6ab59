// Package qrlabel renders the QR codes printed on product and variant labels.
package qrlabel

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const size = 320

// Payload is the compact JSON encoded into a label. VariantSKU is set for
// variant labels only.
type Payload struct {
	SKU        string          `json:"sku"`
	VariantSKU string          `json:"v_sku,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}

// Generator writes PNG files under dir and returns their public URL.
type Generator struct {
	dir       string
	urlPrefix string
}

// NewGenerator stores files in <staticDir>/qr, served at /static/qr.
func NewGenerator(staticDir string) *Generator {
	return &Generator{dir: filepath.Join(staticDir, "qr"), urlPrefix: "/static/qr"}
}

func (g *Generator) Generate(p Payload) (string, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode qr payload: %w", err)
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create qr dir: %w", err)
	}

	filename := uuid.NewString() + ".png"
	if err := qrcode.WriteFile(string(content), qrcode.High, size, filepath.Join(g.dir, filename)); err != nil {
		return "", fmt.Errorf("write qr code: %w", err)
	}
	return path.Join(g.urlPrefix, filename), nil
}
