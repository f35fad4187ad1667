package receipt

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"watchstore/internal/models"
)

func sample() Receipt {
	c := &models.CartWithItems{
		Cart: models.Cart{ID: "cart-1"},
		Items: []models.CartItem{
			{ID: "i1", ProductQtd: 2, TotalAmount: decimal.RequireFromString("200"), ActiveStatus: true, ProductID: models.RefTo("p1")},
			{ID: "i2", ProductQtd: 1, TotalAmount: decimal.RequireFromString("49.9"), ActiveStatus: true, ProductID: models.RefTo("p2")},
			{ID: "i3", ProductQtd: 9, TotalAmount: decimal.RequireFromString("1"), ActiveStatus: false, ProductID: models.RefTo("p3")},
		},
	}
	c.Recompute()
	return Receipt{
		OrderID:  "ord-9",
		Customer: "Jane Doe",
		At:       time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
		Cart:     c,
		Names:    map[string]string{"p1": "Diver 300"},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sample()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Order ord-9", "Customer: Jane Doe", "Date: 2025-03-04 10:30", "Diver 300", "p2", "200.00", "49.90", "249.90"} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "p3") {
		t.Errorf("inactive item printed:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if last := lines[len(lines)-1]; !strings.HasPrefix(strings.TrimSpace(last), "TOTAL") || !strings.Contains(last, " 3 ") {
		t.Errorf("total line = %q", last)
	}
}

func TestRenderWithoutCart(t *testing.T) {
	if err := Render(&bytes.Buffer{}, Receipt{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestQR(t *testing.T) {
	r := sample()
	if p := Payload(r); p != "watchstore:order=ord-9;cart=cart-1;items=3;total=249.90" {
		t.Fatalf("payload = %q", p)
	}
	png, err := QR(r)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a PNG")
	}
	uri, err := QRDataURI(r)
	if err != nil || !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("uri = %.40q, %v", uri, err)
	}

	path := filepath.Join(t.TempDir(), "order.png")
	if err := WriteQR(path, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	if st, err := os.Stat(path); err != nil || st.Size() == 0 {
		t.Fatalf("stat = %v, %v", st, err)
	}
}
