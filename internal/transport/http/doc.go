// Package http implements the HTTP handlers of the lot report service.
// Handlers are a thin layer between chi routing and the service layer:
// they bind and validate query parameters, read uploads and map service
// errors to RFC 7807 problem documents.
//
// # Routes
//
// ReportHandler.Routes and HealthHandler.Routes are mounted under /api:
//
//	POST   /sessions                  upload an order list (raw body or multipart "file")
//	GET    /sessions                  list sessions
//	GET    /sessions/{id}             session summary
//	PUT    /sessions/{id}/file        replace the table of a session
//	DELETE /sessions/{id}             drop a session
//	GET    /sessions/{id}/lots        lots for the filter control
//	GET    /sessions/{id}/views       all four views
//	GET    /sessions/{id}/views/{v}   a single view
//	GET    /sessions/{id}/export      xlsx or csv download
//	POST   /render                    stateless render of the body
//	GET    /health, /health/ready, /health/live, /version
//
// View queries accept platz (repeated, one lot per value), unassigned and top.
//
// # Error Handling
//
// Errors are rendered by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/upload/unreadable",
//	    "title": "Unprocessable Entity",
//	    "status": 422,
//	    "detail": "Uploaded file could not be read",
//	    "instance": "/api/sessions"
//	}
//
// # Testing
//
// Report handlers are tested against a testify mock of ReportServiceInterface
// with httptest recorders.
package http
