package payment

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/shoply/backend/internal/domain/shared"
)

// maskedValue replaces sensitive values before they leave this core
const maskedValue = "***"

// AuditStatus marks the outcome recorded with an audit row
type AuditStatus string

const (
	// AuditStatusSuccess means the request cycle completed and passed its conditions
	AuditStatusSuccess AuditStatus = "success"
	// AuditStatusFailed means the cycle errored or a condition failed
	AuditStatusFailed AuditStatus = "failed"
)

// RequestAuditLog is the immutable record of one outbound provider request.
// Sensitive fields are masked before the row is written, never after; the
// repository exposes no update or delete.
type RequestAuditLog struct {
	shared.BaseEntity
	Provider   Provider    `gorm:"type:varchar(32);not null;index"`
	Action     Action      `gorm:"type:varchar(32);not null"`
	APIMethod  string      `gorm:"column:api_method;not null"`
	APIURL     string      `gorm:"column:api_url;not null"`
	Headers    string      `gorm:"type:text"`
	Body       string      `gorm:"type:text"`
	Response   string      `gorm:"type:text"`
	Status     AuditStatus `gorm:"type:varchar(16);not null"`
	AccountID  *uuid.UUID  `gorm:"type:uuid"`
	MerchantID *uuid.UUID  `gorm:"type:uuid;index"`
	OrderID    *uuid.UUID  `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (RequestAuditLog) TableName() string {
	return "request_audit_logs"
}

// MaskTree returns a deep copy of the tree with values at the given dotted
// paths replaced by the mask. Paths that do not resolve are ignored.
func MaskTree(tree map[string]any, paths []string) map[string]any {
	masked := copyTree(tree)
	for _, path := range paths {
		maskPath(masked, strings.Split(path, "."))
	}
	return masked
}

// MaskHeaders masks sensitive header values by exact key match
func MaskHeaders(headers map[string]string, paths []string) map[string]string {
	masked := make(map[string]string, len(headers))
	for k, v := range headers {
		masked[k] = v
	}
	for _, path := range paths {
		if _, ok := masked[path]; ok {
			masked[path] = maskedValue
		}
	}
	return masked
}

// MaskJSON masks sensitive paths inside a raw JSON document. Payloads that
// do not decode to an object are stored as-is; there is nothing addressable
// to mask.
func MaskJSON(raw []byte, paths []string) string {
	if len(paths) == 0 || len(raw) == 0 {
		return string(raw)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(MaskTree(tree, paths))
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func maskPath(node map[string]any, segs []string) {
	if len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		if _, ok := node[segs[0]]; ok {
			node[segs[0]] = maskedValue
		}
		return
	}
	child, ok := node[segs[0]].(map[string]any)
	if !ok {
		return
	}
	maskPath(child, segs[1:])
}

func copyTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		if child, ok := v.(map[string]any); ok {
			out[k] = copyTree(child)
			continue
		}
		out[k] = v
	}
	return out
}
