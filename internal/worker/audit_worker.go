package worker

import (
	"github.com/rightsplace/rightsplace/internal/service"
)

// StartAuditWorker registers audit handlers. Handlers run synchronously inside
// the publishing request.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
