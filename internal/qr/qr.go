package qr

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// Generator renders the per-item QR images. The payload is the public
// validation URL carrying the item id, so any generic phone camera lands
// staff on the right page and the scanner app can parse the id back out.
type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: baseURL}
}

// PayloadFor returns the string encoded into the item's QR code. Unique per
// item: scanning one item can never validate another.
func (g *Generator) PayloadFor(itemID string) string {
	return fmt.Sprintf("%s/validate?ticket=%s", g.baseURL, url.QueryEscape(itemID))
}

// RefFor returns the public image URL embedded in notification emails.
func (g *Generator) RefFor(itemID string) string {
	return fmt.Sprintf("%s/api/qr/%s", g.baseURL, url.PathEscape(itemID))
}

// Generate renders the QR PNG for one item.
func (g *Generator) Generate(itemID string) ([]byte, error) {
	return qrcode.Encode(g.PayloadFor(itemID), qrcode.Medium, 256)
}

// ItemIDFromPayload extracts the item id back out of a scanned payload.
// Raw item ids are accepted too, for scanners that type ids by hand.
func ItemIDFromPayload(payload string) string {
	u, err := url.Parse(payload)
	if err != nil {
		return payload
	}
	if ticket := u.Query().Get("ticket"); ticket != "" {
		return ticket
	}
	return payload
}
