package cart

import (
	"github.com/google/uuid"

	"github.com/yorishop/yori-backend/pkg/db/models"
	"github.com/yorishop/yori-backend/pkg/enums"
)

// ItemDTO is one cart line with the current product snapshot attached.
type ItemDTO struct {
	ID          uuid.UUID           `json:"id"`
	ProductID   uuid.UUID           `json:"product_id"`
	ProductName string              `json:"product_name"`
	ProductSlug string              `json:"product_slug"`
	Image       string              `json:"image,omitempty"`
	Status      enums.ProductStatus `json:"status"`
	Color       string              `json:"color,omitempty"`
	Size        string              `json:"size,omitempty"`
	UnitPrice   int64               `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
	LineTotal   int64               `json:"line_total"`
	InStock     bool                `json:"in_stock"`
}

// CartDTO is the full cart projection returned to the client.
type CartDTO struct {
	ID        uuid.UUID `json:"id"`
	Items     []ItemDTO `json:"items"`
	ItemCount int       `json:"item_count"`
	Subtotal  int64     `json:"subtotal"`
}

// AddItemInput carries the fields accepted when adding to the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     string
	Size      string
	Quantity  int
}

func toCartDTO(cart models.Cart) CartDTO {
	dto := CartDTO{
		ID:    cart.ID,
		Items: make([]ItemDTO, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		line := ItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Color:     item.Color,
			Size:      item.Size,
			Quantity:  item.Quantity,
		}
		if item.Product != nil {
			line.ProductName = item.Product.Name
			line.ProductSlug = item.Product.Slug
			line.Status = item.Product.Status
			line.UnitPrice = item.Product.Price
			line.LineTotal = item.Product.Price * int64(item.Quantity)
			line.InStock = item.Product.Stock >= item.Quantity
			if len(item.Product.Images) > 0 {
				line.Image = item.Product.Images[0]
			}
		}
		dto.Items = append(dto.Items, line)
		dto.ItemCount += item.Quantity
		dto.Subtotal += line.LineTotal
	}
	return dto
}
