// Package rfq defines the domain model for extracted request-for-quote
// documents: line items, document headers, and item verification statuses.
package rfq

// Dimensions holds the physical dimensions of a requested article in mm.
// Length may be absent for two-dimensional specs (width x height only).
type Dimensions struct {
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	Length *float64 `json:"length"`
}

// Feature is a single ordered article feature, e.g. a thread spec.
type Feature struct {
	FeatureType string `json:"feature_type"`
	Spec        string `json:"spec"`
}

// ItemConfig holds the structured article configuration extracted from the
// article description.
type ItemConfig struct {
	MaterialID    string      `json:"material_id,omitempty"`
	Standard      string      `json:"standard,omitempty"`
	Form          string      `json:"form,omitempty"`
	Material      string      `json:"material,omitempty"`
	Dimensions    *Dimensions `json:"dimensions,omitempty"`
	Features      []Feature   `json:"features,omitempty"`
	WeightPerUnit *float64    `json:"weight_per_unit,omitempty"`
}

// ItemMetadata carries validation results alongside an item. It is computed
// per request and never persisted.
type ItemMetadata struct {
	RuleConfidenceScore   float64    `json:"rule_confidence_score"`
	RawTextSnippet        string     `json:"raw_text_snippet"`
	Status                ItemStatus `json:"status,omitempty"`
	MaterialAutoCorrected string     `json:"material_auto_corrected,omitempty"`
}

// RequestedItem is one line item of an RFQ or purchase order.
type RequestedItem struct {
	Pos          int          `json:"pos"`
	ArticleName  string       `json:"article_name"`
	Quantity     float64      `json:"quantity"`
	Unit         string       `json:"unit"`
	DeliveryDate string       `json:"delivery_date,omitempty"`
	Config       ItemConfig   `json:"config"`
	Metadata     ItemMetadata `json:"metadata"`
}

// Header is the document-level metadata extracted once per request.
type Header struct {
	RFQNumber      string `json:"rfq_number"`
	SupplierName   string `json:"supplier_name"`
	CustomerName   string `json:"customer_name,omitempty"`
	CustomerNumber string `json:"customer_number,omitempty"`
	DocumentDate   string `json:"document_date,omitempty"`
	DocumentType   string `json:"document_type"`
}
