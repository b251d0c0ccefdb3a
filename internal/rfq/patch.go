package rfq

// ItemPatch is a partial item overlay, as proposed by the verifier. Nil
// fields leave the original value untouched; position and metadata are never
// patched.
type ItemPatch struct {
	ArticleName  *string     `json:"article_name,omitempty"`
	Quantity     *float64    `json:"quantity,omitempty"`
	Unit         *string     `json:"unit,omitempty"`
	DeliveryDate *string     `json:"delivery_date,omitempty"`
	Config       *ItemConfig `json:"config,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p *ItemPatch) Empty() bool {
	return p == nil ||
		(p.ArticleName == nil && p.Quantity == nil && p.Unit == nil &&
			p.DeliveryDate == nil && p.Config == nil)
}

// Apply returns a copy of item with the patch applied.
func (p *ItemPatch) Apply(item RequestedItem) RequestedItem {
	if p == nil {
		return item
	}
	if p.ArticleName != nil {
		item.ArticleName = *p.ArticleName
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.DeliveryDate != nil {
		item.DeliveryDate = *p.DeliveryDate
	}
	if p.Config != nil {
		item.Config = *p.Config
	}
	return item
}
