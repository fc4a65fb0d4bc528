package http

import (
	"context"

	"lotpulse/internal/services"
	api "lotpulse/pkg/contracts/api/v1"
	"lotpulse/pkg/contracts/domain"
)

// ReportServiceInterface defines the report operations used by ReportHandler
type ReportServiceInterface interface {
	Upload(ctx context.Context, name string, data []byte) (*api.SessionSummary, error)
	Replace(ctx context.Context, id, name string, data []byte) (*api.SessionSummary, error)
	Session(ctx context.Context, id string) (*api.SessionSummary, error)
	List(ctx context.Context) []*api.SessionSummary
	Delete(ctx context.Context, id string) error
	Lots(ctx context.Context, id string) (*api.LotsResponse, error)
	Views(ctx context.Context, id string, q api.ViewQuery) (*domain.ReportViews, error)
	View(ctx context.Context, id, name string, q api.ViewQuery) (any, error)
	Export(ctx context.Context, id string, q api.ExportQuery) (*services.ExportFile, error)
	Render(ctx context.Context, data []byte, q api.RenderQuery) (*api.RenderResponse, error)
}

var _ ReportServiceInterface = (*services.ReportService)(nil)
