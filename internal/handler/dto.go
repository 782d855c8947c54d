package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mixandtaste/internal/domain/cart"
	"github.com/xenking/mixandtaste/internal/domain/customization"
	"github.com/xenking/mixandtaste/internal/domain/menu"
	"github.com/xenking/mixandtaste/internal/domain/order"
)

// Category is the wire form of menu.Category.
type Category struct {
	ID          string             `json:"id"`
	Name        menu.LocalizedText `json:"name"`
	Description menu.LocalizedText `json:"description"`
	ImageURL    string             `json:"image_url,omitempty"`
	SortOrder   int                `json:"sort_order"`
	Active      bool               `json:"active"`
}

func (h *Handler) category(c menu.Category) Category {
	return Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    h.imageURL(c.ImageURL),
		SortOrder:   c.SortOrder,
		Active:      c.Active,
	}
}

func (c Category) domain() *menu.Category {
	return &menu.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		SortOrder:   c.SortOrder,
		Active:      c.Active,
	}
}

// Product is the wire form of menu.Product. EffectivePrice is ignored on
// input.
type Product struct {
	ID             string             `json:"id"`
	CategoryID     string             `json:"category_id"`
	Name           menu.LocalizedText `json:"name"`
	Description    menu.LocalizedText `json:"description"`
	Price          decimal.Decimal    `json:"price"`
	DiscountPrice  *decimal.Decimal   `json:"discount_price,omitempty"`
	EffectivePrice decimal.Decimal    `json:"effective_price"`
	ImageURL       string             `json:"image_url,omitempty"`
	Rating         decimal.Decimal    `json:"rating"`
	PrepTime       string             `json:"prep_time,omitempty"`
	Spicy          bool               `json:"spicy"`
	Offer          bool               `json:"offer"`
	Available      bool               `json:"available"`
	Featured       bool               `json:"featured"`
	SortOrder      int                `json:"sort_order"`
}

func (h *Handler) product(p menu.Product) Product {
	out := Product{
		ID:             p.ID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		EffectivePrice: p.EffectivePrice(),
		ImageURL:       h.imageURL(p.ImageURL),
		Rating:         p.Rating,
		PrepTime:       p.PrepTime,
		Spicy:          p.Spicy,
		Offer:          p.Offer,
		Available:      p.Available,
		Featured:       p.Featured,
		SortOrder:      p.SortOrder,
	}
	if p.DiscountPrice.Valid {
		d := p.DiscountPrice.Decimal
		out.DiscountPrice = &d
	}
	return out
}

func (h *Handler) products(in []menu.Product) []Product {
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = h.product(p)
	}
	return out
}

func (p Product) domain() *menu.Product {
	out := &menu.Product{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Rating:      p.Rating,
		PrepTime:    p.PrepTime,
		Spicy:       p.Spicy,
		Offer:       p.Offer,
		Available:   p.Available,
		Featured:    p.Featured,
		SortOrder:   p.SortOrder,
	}
	if p.DiscountPrice != nil {
		out.DiscountPrice = decimal.NewNullDecimal(*p.DiscountPrice)
	}
	return out
}

// Offer is the wire form of menu.Offer.
type Offer struct {
	ID                 string             `json:"id"`
	Title              menu.LocalizedText `json:"title"`
	Description        menu.LocalizedText `json:"description"`
	ImageURL           string             `json:"image_url,omitempty"`
	DiscountPercentage *decimal.Decimal   `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal   `json:"discount_amount,omitempty"`
	ValidFrom          time.Time          `json:"valid_from"`
	ValidUntil         *time.Time         `json:"valid_until,omitempty"`
	Active             bool               `json:"active"`
	SortOrder          int                `json:"sort_order"`
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func (h *Handler) offer(o menu.Offer) Offer {
	return Offer{
		ID:                 o.ID,
		Title:              o.Title,
		Description:        o.Description,
		ImageURL:           h.imageURL(o.ImageURL),
		DiscountPercentage: nullable(o.DiscountPercentage),
		DiscountAmount:     nullable(o.DiscountAmount),
		ValidFrom:          o.ValidFrom,
		ValidUntil:         o.ValidUntil,
		Active:             o.Active,
		SortOrder:          o.SortOrder,
	}
}

func (h *Handler) offers(in []menu.Offer) []Offer {
	out := make([]Offer, len(in))
	for i, o := range in {
		out[i] = h.offer(o)
	}
	return out
}

func (o Offer) domain() *menu.Offer {
	validFrom := o.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now()
	}
	return &menu.Offer{
		ID:                 o.ID,
		Title:              o.Title,
		Description:        o.Description,
		ImageURL:           o.ImageURL,
		DiscountPercentage: nullDecimal(o.DiscountPercentage),
		DiscountAmount:     nullDecimal(o.DiscountAmount),
		ValidFrom:          validFrom,
		ValidUntil:         o.ValidUntil,
		Active:             o.Active,
		SortOrder:          o.SortOrder,
	}
}

// Menu is the full storefront menu.
type Menu struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
	Featured   []Product  `json:"featured"`
	Offers     []Offer    `json:"offers"`
}

// Option is the wire form of customization.Option.
type Option struct {
	ID        string                   `json:"id"`
	Type      customization.OptionType `json:"type"`
	Name      menu.LocalizedText       `json:"name"`
	Surcharge decimal.Decimal          `json:"surcharge"`
}

func option(o customization.Option) Option {
	return Option{ID: o.ID, Type: o.Type, Name: o.Name, Surcharge: o.Surcharge}
}

// OptionGroup lists the options of one type.
type OptionGroup struct {
	Type     customization.OptionType `json:"type"`
	Required bool                     `json:"required"`
	Options  []Option                 `json:"options"`
}

// Policy describes how a product can be customized.
type Policy struct {
	RequiredTypes []customization.OptionType `json:"required_types"`
	Groups        []OptionGroup              `json:"groups"`
	// Unlocks maps a presentation option to the type it makes mandatory.
	Unlocks map[string]customization.OptionType `json:"unlocks,omitempty"`
}

func policy(p *customization.Policy) *Policy {
	if p == nil {
		return nil
	}
	out := &Policy{RequiredTypes: p.RequiredTypes}
	if out.RequiredTypes == nil {
		out.RequiredTypes = []customization.OptionType{}
	}
	for _, t := range p.Types() {
		g := OptionGroup{Type: t, Required: p.Requires(t)}
		for _, o := range p.ListOptions(t) {
			g.Options = append(g.Options, option(o))
		}
		out.Groups = append(out.Groups, g)
	}
	for _, o := range p.ListOptions(customization.PrimaryType) {
		if t, ok := customization.SecondaryRequirement(o.ID); ok {
			if out.Unlocks == nil {
				out.Unlocks = make(map[string]customization.OptionType)
			}
			out.Unlocks[o.ID] = t
		}
	}
	return out
}

// ProductDetail is a product with its customization policy. Policy is
// omitted for products that go straight into the cart.
type ProductDetail struct {
	Product
	Customization *Policy `json:"customization,omitempty"`
}

// Preview reports the state of an in-progress customization.
type Preview struct {
	ProductID string                              `json:"product_id"`
	State     string                              `json:"state"`
	Complete  bool                                `json:"complete"`
	CanAdd    bool                                `json:"can_add"`
	Missing   []customization.OptionType          `json:"missing"`
	Options   map[customization.OptionType]string `json:"options"`
	Quantity  int                                 `json:"quantity"`
	UnitPrice decimal.Decimal                     `json:"unit_price"`
	LineTotal decimal.Decimal                     `json:"line_total"`
}

func preview(p *cart.Preview) Preview {
	missing := p.Selection.Missing()
	if missing == nil {
		missing = []customization.OptionType{}
	}
	return Preview{
		ProductID: p.Product.ID,
		State:     p.Selection.State().String(),
		Complete:  p.Selection.IsComplete(),
		CanAdd:    p.CanAdd(),
		Missing:   missing,
		Options:   p.Selection.Chosen(),
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice,
		LineTotal: p.LineTotal,
	}
}

// SelectionRequest carries options chosen in the customization dialog.
type SelectionRequest struct {
	Options  map[customization.OptionType]string `json:"options"`
	Quantity int                                 `json:"quantity"`
}

// CartLine is the wire form of cart.Line.
type CartLine struct {
	ID        string                              `json:"id"`
	ProductID string                              `json:"product_id"`
	Name      menu.LocalizedText                  `json:"name"`
	ImageURL  string                              `json:"image_url,omitempty"`
	Quantity  int                                 `json:"quantity"`
	UnitTotal decimal.Decimal                     `json:"unit_total"`
	LineTotal decimal.Decimal                     `json:"line_total"`
	Options   map[customization.OptionType]string `json:"options,omitempty"`
}

// Cart is the wire form of cart.Cart.
type Cart struct {
	Lines                 []CartLine      `json:"lines"`
	Count                 int             `json:"count"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	Total                 decimal.Decimal `json:"total"`
	FreeDeliveryThreshold decimal.Decimal `json:"free_delivery_threshold"`
}

func (h *Handler) cart(c *cart.Cart) Cart {
	lines := c.Lines()
	out := Cart{
		Lines:                 make([]CartLine, len(lines)),
		Count:                 c.Count(),
		FreeDeliveryThreshold: c.Delivery().FreeThreshold,
	}
	for i, l := range lines {
		out.Lines[i] = CartLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			Name:      l.Name,
			ImageURL:  h.imageURL(l.Image),
			Quantity:  l.Quantity,
			UnitTotal: l.UnitTotal,
			LineTotal: l.Total(),
			Options:   l.Options,
		}
	}
	totals := c.Totals()
	out.Subtotal = totals.Subtotal
	out.DeliveryFee = totals.DeliveryFee
	out.Total = totals.Total
	return out
}

// AddItemRequest is the body of POST /api/cart/items.
type AddItemRequest struct {
	ProductID string                              `json:"product_id"`
	Quantity  int                                 `json:"quantity"`
	Options   map[customization.OptionType]string `json:"options,omitempty"`
}

// UpdateItemRequest is the body of PATCH /api/cart/items/{lineID}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Customer is the wire form of order.Customer.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// CheckoutRequest is the body of POST /api/cart/checkout.
type CheckoutRequest struct {
	Customer Customer `json:"customer"`
}

// OrderItem is the wire form of order.Item.
type OrderItem struct {
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	UnitPrice       decimal.Decimal   `json:"unit_price"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	LineTotal       decimal.Decimal   `json:"line_total"`
}

// Order is the wire form of order.Order.
type Order struct {
	ID          string          `json:"id"`
	Customer    Customer        `json:"customer"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	Status      order.Status    `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func orderDTO(o *order.Order) Order {
	out := Order{
		ID: o.ID,
		Customer: Customer{
			Name:    o.Customer.Name,
			Phone:   o.Customer.Phone,
			Address: o.Customer.Address,
			Notes:   o.Customer.Notes,
		},
		Items:       make([]OrderItem, len(o.Items)),
		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		Total:       o.Total,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i, it := range o.Items {
		out.Items[i] = OrderItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			SelectedOptions: it.SelectedOptions,
			LineTotal:       it.LineTotal,
		}
	}
	return out
}

// StatusRequest is the body of PATCH /api/admin/orders/{orderID}/status.
type StatusRequest struct {
	Status order.Status `json:"status"`
}

// OptionRecord is the wire form of customization.OptionRecord.
type OptionRecord struct {
	ID        string                   `json:"id"`
	Type      customization.OptionType `json:"type"`
	Name      menu.LocalizedText       `json:"name"`
	Surcharge decimal.Decimal          `json:"surcharge"`
	SortOrder int                      `json:"sort_order"`
	Active    bool                     `json:"active"`
}

func optionRecord(r customization.OptionRecord) OptionRecord {
	return OptionRecord{
		ID:        r.Option.ID,
		Type:      r.Option.Type,
		Name:      r.Option.Name,
		Surcharge: r.Option.Surcharge,
		SortOrder: r.SortOrder,
		Active:    r.Active,
	}
}

// RequiredTypes is the body of the required-types admin routes.
type RequiredTypes struct {
	Types []customization.OptionType `json:"types"`
}
