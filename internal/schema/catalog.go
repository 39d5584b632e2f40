// Package schema describes the lab reporting schema. The catalog is static
// reference data: it feeds the translator prompt and the /schema endpoint,
// and nothing in the service ever mutates it.
package schema

import (
	"fmt"
	"strings"
)

// Column describes one column of a catalog table
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Table describes one table of the lab schema
type Table struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Columns     []Column          `json:"columns"`
	ForeignKeys map[string]string `json:"foreign_keys,omitempty"`
}

// Catalog holds the full schema description
type Catalog struct {
	tables        []Table
	relationships []string
}

// NewCatalog builds the lab reporting catalog
func NewCatalog() *Catalog {
	return &Catalog{
		tables: []Table{
			{
				Name:        "org",
				Description: "Organization master data",
				Columns: []Column{
					{Name: "ng_org_id", Type: "int", Description: "Organization ID (PK)"},
					{Name: "org_name", Type: "varchar", Description: "Organization name"},
					{Name: "org_ng_id", Type: "varchar", Description: "Organization NG ID (unique)"},
				},
			},
			{
				Name:        "lab_center",
				Description: "Centers within an organization",
				Columns: []Column{
					{Name: "ng_lab_center_id", Type: "int", Description: "Lab center ID (PK)"},
					{Name: "ng_org_id", Type: "int", Description: "Organization ID"},
					{Name: "lab_id", Type: "varchar", Description: "Lab identifier (unique)"},
					{Name: "lab_center_name", Type: "varchar", Description: "Lab center name"},
					{Name: "lab_no", Type: "varchar", Description: "Lab number (varchar, not int)"},
				},
				ForeignKeys: map[string]string{
					"ng_org_id": "org.ng_org_id",
				},
			},
			{
				Name:        "report_details",
				Description: "Report metadata",
				Columns: []Column{
					{Name: "ng_report_id", Type: "int", Description: "Report ID (PK)"},
					{Name: "ng_org_id", Type: "int", Description: "Organization ID"},
					{Name: "ng_lab_center_id", Type: "int", Description: "Lab center ID"},
					{Name: "age_years", Type: "int", Description: "Patient age in years"},
					{Name: "gender", Type: "varchar", Description: "Patient gender"},
					{Name: "bill_date", Type: "timestamp", Description: "Bill date"},
					{Name: "bill_id", Type: "varchar", Description: "Bill identifier (unique)"},
					{Name: "package_name", Type: "varchar", Description: "Package name"},
					{Name: "generation_in_epoch", Type: "bigint", Description: "Generation timestamp in epoch"},
				},
				ForeignKeys: map[string]string{
					"ng_org_id":        "org.ng_org_id",
					"ng_lab_center_id": "lab_center.ng_lab_center_id",
				},
			},
			{
				Name:        "test",
				Description: "Test-level details",
				Columns: []Column{
					{Name: "ng_test_id", Type: "int", Description: "Test ID (PK)"},
					{Name: "ng_org_id", Type: "int", Description: "Organization ID"},
					{Name: "ng_lab_center_id", Type: "int", Description: "Lab center ID"},
					{Name: "ng_report_id", Type: "int", Description: "Report ID"},
					{Name: "test_name", Type: "varchar", Description: "Name of the test"},
					{Name: "total_parameter_count", Type: "int", Description: "Total parameters in test"},
					{Name: "normal_parameter_count", Type: "int", Description: "Normal parameter count"},
					{Name: "abnormal_parameter_count", Type: "int", Description: "Abnormal parameter count"},
					{Name: "is_abnormal", Type: "boolean", Description: "Whether test has abnormal results"},
				},
				ForeignKeys: map[string]string{
					"ng_org_id":        "org.ng_org_id",
					"ng_lab_center_id": "lab_center.ng_lab_center_id",
					"ng_report_id":     "report_details.ng_report_id",
				},
			},
			{
				Name:        "parameters",
				Description: "Parameter-level details",
				Columns: []Column{
					{Name: "ng_parameters_id", Type: "int", Description: "Parameter ID (PK)"},
					{Name: "ng_test_id", Type: "int", Description: "Test ID"},
					{Name: "ng_report_id", Type: "int", Description: "Report ID"},
					{Name: "ng_org_id", Type: "int", Description: "Organization ID"},
					{Name: "ng_lab_center_id", Type: "int", Description: "Lab center ID"},
					{Name: "parameter_name", Type: "varchar", Description: "Parameter name"},
					{Name: "parameter_value", Type: "varchar", Description: "Parameter value"},
					{Name: "min_value", Type: "varchar", Description: "Minimum reference value"},
					{Name: "max_value", Type: "varchar", Description: "Maximum reference value"},
					{Name: "test_range", Type: "varchar", Description: "Test range"},
					{Name: "impression", Type: "varchar", Description: "Impression/interpretation"},
					{Name: "is_abnormal", Type: "boolean", Description: "Whether parameter is abnormal"},
					{Name: "unit", Type: "varchar", Description: "Parameter unit"},
				},
				ForeignKeys: map[string]string{
					"ng_test_id":       "test.ng_test_id",
					"ng_report_id":     "report_details.ng_report_id",
					"ng_org_id":        "org.ng_org_id",
					"ng_lab_center_id": "lab_center.ng_lab_center_id",
				},
			},
		},
		relationships: []string{
			"org -> lab_center (1:N)",
			"org -> report_details (1:N)",
			"lab_center -> report_details (1:N)",
			"report_details -> test (1:N)",
			"test -> parameters (1:N)",
		},
	}
}

// Tables returns the catalog tables in schema order
func (c *Catalog) Tables() []Table {
	return c.tables
}

// Relationships returns the human-readable relationship list
func (c *Catalog) Relationships() []string {
	return c.relationships
}

// Describe returns the JSON shape served by the /schema endpoint
func (c *Catalog) Describe() map[string]interface{} {
	tables := make(map[string]interface{}, len(c.tables))
	for _, t := range c.tables {
		cols := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cols[i] = col.Name
		}
		entry := map[string]interface{}{
			"columns":     cols,
			"description": t.Description,
		}
		if len(t.ForeignKeys) > 0 {
			entry["foreign_keys"] = t.ForeignKeys
		}
		tables[t.Name] = entry
	}

	return map[string]interface{}{
		"tables":        tables,
		"relationships": c.relationships,
	}
}

// PromptContext renders the schema as reference text for the translator
func (c *Catalog) PromptContext() string {
	var sb strings.Builder

	sb.WriteString("PostgreSQL Database Schema for Lab Intelligence System:\n")
	for _, t := range c.tables {
		sb.WriteString(fmt.Sprintf("\nTable: %s (%s)\n", t.Name, t.Description))
		for _, col := range t.Columns {
			if ref, ok := t.ForeignKeys[col.Name]; ok {
				sb.WriteString(fmt.Sprintf("  - %s (%s, FK -> %s): %s\n", col.Name, col.Type, ref, col.Description))
			} else {
				sb.WriteString(fmt.Sprintf("  - %s (%s): %s\n", col.Name, col.Type, col.Description))
			}
		}
	}

	sb.WriteString("\nImportant Notes:\n")
	sb.WriteString("- All dates are stored as timestamps in bill_date\n")
	sb.WriteString("- Use DATE() function to extract date from timestamp\n")
	sb.WriteString("- Lab numbers are stored in lab_center.lab_no (varchar, not int)\n")
	sb.WriteString("- Use JOINs to connect related tables\n")
	sb.WriteString("- Use is_abnormal = TRUE for abnormal tests/parameters\n")

	return sb.String()
}
