package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/varoOP/cardvault/internal/domain"
)

// columnAliases lists, per field, the headers export tools use for it
var columnAliases = map[string][]string{
	"name":            {"Name"},
	"quantity":        {"Quantity", "Count"},
	"set":             {"Set", "Edition"},
	"collectorNumber": {"Collector Number", "Card Number"},
	"foil":            {"Foil"},
	"condition":       {"Condition"},
	"language":        {"Language"},
}

var truthyFoil = map[string]bool{
	"yes":  true,
	"true": true,
	"1":    true,
	"foil": true,
}

type parsedRow struct {
	Name            string
	Set             string
	CollectorNumber string
	Quantity        int
	Foil            bool
	Condition       string
	Language        string
}

// lookup returns the first non-empty value among the aliases of field
func lookup(row map[string]string, field string) string {
	for _, alias := range columnAliases[field] {
		if v := strings.TrimSpace(row[strings.ToLower(alias)]); v != "" {
			return v
		}
	}
	return ""
}

// normalizeKeys lowercases headers and drops surrounding spaces and a byte order mark
func normalizeKeys(row domain.Row) map[string]string {
	m := make(map[string]string, len(row))
	for k, v := range row {
		k = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(k, "\ufeff")))
		if _, dup := m[k]; dup && strings.TrimSpace(v) == "" {
			continue
		}
		m[k] = v
	}
	return m
}

// parseRow validates one row. skip reports incomplete rows that are dropped
// without an error; err reports malformed ones.
func parseRow(row domain.Row) (p parsedRow, skip bool, err error) {
	m := normalizeKeys(row)

	p.Name = lookup(m, "name")
	p.Set = lookup(m, "set")
	p.CollectorNumber = lookup(m, "collectorNumber")
	qty := lookup(m, "quantity")
	if p.Name == "" || p.Set == "" || qty == "" {
		return p, true, nil
	}

	p.Quantity, err = strconv.Atoi(qty)
	if err != nil {
		return p, false, fmt.Errorf("invalid quantity %q", qty)
	}
	if p.Quantity <= 0 {
		return p, true, nil
	}

	p.Foil = truthyFoil[strings.ToLower(lookup(m, "foil"))]

	p.Condition = lookup(m, "condition")
	if p.Condition == "" {
		p.Condition = domain.DefaultCondition
	}
	p.Language = lookup(m, "language")
	if p.Language == "" {
		p.Language = domain.DefaultLanguage
	}

	return p, false, nil
}
