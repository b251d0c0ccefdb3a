package rfq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractionPayload is the wire shape the oracle must return for a primary
// extraction pass.
type extractionPayload struct {
	RequestedItems []json.RawMessage `json:"requested_items"`
}

// wireItem tolerates the numeric sloppiness of model output: position and
// quantity may arrive as numbers or as strings.
type wireItem struct {
	Pos          json.RawMessage `json:"pos"`
	ArticleName  string          `json:"article_name"`
	Quantity     json.RawMessage `json:"quantity"`
	Unit         string          `json:"unit"`
	DeliveryDate string          `json:"delivery_date"`
	Config       ItemConfig      `json:"config"`
}

// DecodeItems parses and validates an oracle extraction payload.
//
// The payload as a whole must be a JSON object with a requested_items array;
// anything else fails the call. Individual items that do not match the schema
// are dropped and reported as diagnostics so the rest of the document
// survives.
func DecodeItems(payload []byte) ([]RequestedItem, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var wire extractionPayload
	if err := dec.Decode(&wire); err != nil {
		return nil, nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if wire.RequestedItems == nil {
		return nil, nil, fmt.Errorf("payload missing requested_items array")
	}

	items := make([]RequestedItem, 0, len(wire.RequestedItems))
	var diags []string
	for i, raw := range wire.RequestedItems {
		item, err := decodeItem(raw)
		if err != nil {
			diags = append(diags, fmt.Sprintf("item %d dropped: %v", i, err))
			continue
		}
		items = append(items, item)
	}
	return items, diags, nil
}

func decodeItem(raw json.RawMessage) (RequestedItem, error) {
	var w wireItem
	if err := json.Unmarshal(raw, &w); err != nil {
		return RequestedItem{}, err
	}
	if strings.TrimSpace(w.ArticleName) == "" {
		return RequestedItem{}, fmt.Errorf("missing article_name")
	}

	pos, err := decodeInt(w.Pos)
	if err != nil {
		return RequestedItem{}, fmt.Errorf("invalid pos: %w", err)
	}
	qty, err := decodeFloat(w.Quantity)
	if err != nil {
		return RequestedItem{}, fmt.Errorf("invalid quantity: %w", err)
	}

	return RequestedItem{
		Pos:          pos,
		ArticleName:  strings.TrimSpace(w.ArticleName),
		Quantity:     qty,
		Unit:         strings.TrimSpace(w.Unit),
		DeliveryDate: strings.TrimSpace(w.DeliveryDate),
		Config:       w.Config,
	}, nil
}

// decodeInt accepts 10, "10", 10.0 and null (as zero).
func decodeInt(raw json.RawMessage) (int, error) {
	f, err := decodeFloat(raw)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// decodeFloat accepts numbers, numeric strings with , or . separators, and
// null (as zero). A comma marks German decimal notation; any dots in such a
// string are thousands separators ("1.000,5" is 1000.5).
func decodeFloat(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("neither number nor string: %s", string(raw))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}
