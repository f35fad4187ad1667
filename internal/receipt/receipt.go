// Package receipt renders a finalized cart snapshot for the customer.
package receipt

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/skip2/go-qrcode"

	"watchstore/internal/models"
)

const qrSize = 256

type Receipt struct {
	OrderID  string
	Customer string
	At       time.Time
	Cart     *models.CartWithItems
	// Names maps product ids to display names; ids are printed otherwise.
	Names map[string]string
}

func (r Receipt) productName(it models.CartItem) string {
	if it.ProductID.Product != nil && it.ProductID.Product.Name != "" {
		return it.ProductID.Product.Name
	}
	if n, ok := r.Names[it.ProductID.ID]; ok && n != "" {
		return n
	}
	return it.ProductID.ID
}

// Render writes the receipt as an aligned text table.
func Render(w io.Writer, r Receipt) error {
	if r.Cart == nil {
		return fmt.Errorf("receipt: no cart")
	}
	fmt.Fprintf(w, "Order %s\n", orDash(r.OrderID))
	if r.Customer != "" {
		fmt.Fprintf(w, "Customer: %s\n", r.Customer)
	}
	if !r.At.IsZero() {
		fmt.Fprintf(w, "Date: %s\n", r.At.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PRODUCT\tQTY\tSUBTOTAL\t")
	for _, it := range r.Cart.ActiveItems() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", r.productName(it), it.ProductQtd, models.FormatMoney(it.TotalAmount))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%s\t\n", r.Cart.ItemCount(), models.FormatMoney(r.Cart.TotalOrder))
	return tw.Flush()
}

// Payload is what the QR code encodes.
func Payload(r Receipt) string {
	var items int
	total := "0.00"
	if r.Cart != nil {
		items = r.Cart.ItemCount()
		total = models.FormatMoney(r.Cart.TotalOrder)
	}
	return fmt.Sprintf("watchstore:order=%s;cart=%s;items=%d;total=%s", r.OrderID, cartID(r), items, total)
}

// QR returns the receipt's QR code as PNG bytes.
func QR(r Receipt) ([]byte, error) {
	png, err := qrcode.Encode(Payload(r), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("receipt: qr: %w", err)
	}
	return png, nil
}

// QRDataURI is QR as an inline data: URI.
func QRDataURI(r Receipt) (string, error) {
	png, err := QR(r)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// WriteQR saves the QR PNG at path.
func WriteQR(path string, r Receipt) error {
	if err := qrcode.WriteFile(Payload(r), qrcode.Medium, qrSize, path); err != nil {
		return fmt.Errorf("receipt: write qr %s: %w", path, err)
	}
	return os.Chmod(path, 0o644)
}

func cartID(r Receipt) string {
	if r.Cart == nil {
		return ""
	}
	return r.Cart.ID
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
