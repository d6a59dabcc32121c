package order

import (
	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/order/entity"
)

// FreezeLines copies the current name, price and image of every resolved
// product into its line. Lines whose product is missing from resolved keep
// only the reference and quantity. The result shares no memory with resolved.
func FreezeLines(requested []entity.LineRequest, resolved map[string]entity.Product) entity.Lines {
	lines := make(entity.Lines, len(requested))
	for i, req := range requested {
		line := entity.Line{ProductID: req.ProductID, Quantity: req.Quantity}
		if p, ok := resolved[req.ProductID]; ok {
			name, price, image := p.Name, p.Price, p.Image
			line.Name = &name
			line.Price = &price
			line.Image = &image
		}
		lines[i] = line
	}
	return lines
}

// Total sums price * quantity over resolved lines.
func Total(lines entity.Lines) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if !l.Resolved() {
			continue
		}
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
