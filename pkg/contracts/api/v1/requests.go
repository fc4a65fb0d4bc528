// Package api contains HTTP contract definitions for the lot report service.
// Version v1 represents the current stable API version.
package api

// ViewQuery selects the lots and parameters for rendering views.
// An empty Platz list selects every available lot.
type ViewQuery struct {
	Platz      []string `json:"platz,omitempty" query:"platz" validate:"omitempty,dive,required"`
	Unassigned bool     `json:"unassigned" query:"unassigned"`
	Top        int      `json:"top,omitempty" query:"top" validate:"omitempty,min=1,max=100"`
}

// ExportQuery describes a download of rendered views.
type ExportQuery struct {
	ViewQuery
	Format string `json:"format" query:"format" validate:"required,oneof=xlsx csv"`
	View   string `json:"view,omitempty" query:"view" validate:"omitempty,oneof=category-counts dwell-averages customer-totals top-dwellers"`
}

// RenderQuery describes a stateless render of an uploaded file.
type RenderQuery struct {
	ViewQuery
	AsOf     string `json:"as_of,omitempty" query:"as_of" validate:"omitempty,datetime=2006-01-02"`
	FileName string `json:"file_name,omitempty" query:"file_name" validate:"omitempty,filename"`
}
