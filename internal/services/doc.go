// Package services implements the business logic layer of the lot report
// application. It sits between the HTTP handlers and the ingestion, session
// and export packages so that handlers never touch a table directly.
//
// # Available Services
//
//   - ReportService: uploads, session lifecycle, view rendering and exports
//   - HealthService: health, readiness and liveness checks plus version info
//
// # Common Service Pattern
//
// Every ReportService operation opens an OpenTelemetry span, records
// business metrics when a metrics set is configured and logs through the
// injected slog logger:
//
//	ctx, span := s.tracer.Start(ctx, "report.views")
//	defer span.End()
//
//	session, err := s.get(ctx, id)
//	if err != nil {
//	    return nil, err
//	}
//
// # Today's Date
//
// Dwell times depend on the current calendar date in the configured
// location. The date is read from a Clock so tests can pin it:
//
//	svc := NewReportService(store, opts, nil, nil, logger).
//	    WithClock(ClockFunc(func() time.Time { return day }))
//
// Views of a session kept across midnight are re-derived against the new date.
//
// # Error Handling
//
// Services return sentinel errors that handlers map to problem documents:
//
//   - ErrSessionNotFound for unknown or expired sessions
//   - ErrEmptyUpload, ErrUploadTooLarge for rejected uploads
//   - ErrInvalidQuery, ErrUnsupportedFormat for bad parameters
//   - ErrSessionLimit when the session store is full
//
// Unreadable uploads are returned wrapped and match
// dataprocessing.ErrUnreadableInput with errors.Is.
package services
