package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"catalog/internal/model"
)

// ProductCandidate is an unvalidated product as it arrived on the wire.
// Values keep their textual form so that JSON numbers and CSV cells are
// checked by the same rules. An empty string means missing.
type ProductCandidate struct {
	Title       string
	Description string
	Price       string
	Count       string
}

// ValidationResult lists every violated rule in a fixed order.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	IsError bool     `json:"isError"`
	Errors  []string `json:"errors"`
}

// CandidateFromJSON extracts the candidate fields from a JSON object.
// Strings are taken as-is, numbers keep their literal form, and null or
// false count as missing.
func CandidateFromJSON(payload []byte) (ProductCandidate, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(payload)
	if err != nil {
		return ProductCandidate{}, fmt.Errorf("parse product payload: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return ProductCandidate{}, fmt.Errorf("product payload must be a JSON object, got %s", v.Type())
	}
	return ProductCandidate{
		Title:       fieldText(v.Get("title")),
		Description: fieldText(v.Get("description")),
		Price:       fieldText(v.Get("price")),
		Count:       fieldText(v.Get("count")),
	}, nil
}

// CandidateFromRow builds a candidate from a parsed CSV row.
func CandidateFromRow(row model.ImportRow) ProductCandidate {
	return ProductCandidate{
		Title:       row["title"],
		Description: row["description"],
		Price:       row["price"],
		Count:       row["count"],
	}
}

func fieldText(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.String()
	case fastjson.TypeTrue:
		return "true"
	default:
		// null, false, objects and arrays
		return ""
	}
}

// ValidateProduct checks title, price, description and count, in that
// order, without stopping at the first failure.
func ValidateProduct(c ProductCandidate) ValidationResult {
	errs := []string{}

	if c.Title == "" {
		errs = append(errs, "Title is required")
	}

	if isFalsy(c.Price) {
		errs = append(errs, "Price is required")
	} else if _, ok := positiveNumber(c.Price); !ok {
		errs = append(errs, "Price must be a positive number")
	}

	if c.Description == "" {
		errs = append(errs, "Description is required")
	}

	if isFalsy(c.Count) {
		errs = append(errs, "Count is required")
	} else if n, ok := positiveNumber(c.Count); !ok || n != math.Trunc(n) {
		errs = append(errs, "Count must be a positive number")
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		IsError: len(errs) != 0,
		Errors:  errs,
	}
}

// ToCreateProduct converts a candidate that passed ValidateProduct.
func (c ProductCandidate) ToCreateProduct() (model.CreateProduct, error) {
	price, ok := positiveNumber(c.Price)
	if !ok {
		return model.CreateProduct{}, fmt.Errorf("invalid price %q", c.Price)
	}
	count, ok := positiveNumber(c.Count)
	if !ok || count != math.Trunc(count) {
		return model.CreateProduct{}, fmt.Errorf("invalid count %q", c.Count)
	}
	return model.CreateProduct{
		Title:       c.Title,
		Description: c.Description,
		Price:       price,
		Count:       int(count),
	}, nil
}

// isFalsy reports a missing value or a numeric zero.
func isFalsy(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	n, err := strconv.ParseFloat(s, 64)
	return err == nil && n == 0
}

func positiveNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return 0, false
	}
	return n, true
}
