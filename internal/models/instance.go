package models

import "time"

// InstanceStatus mirrors the gateway session states
type InstanceStatus string

const (
	InstanceStarting   InstanceStatus = "STARTING"
	InstanceScanQRCode InstanceStatus = "SCAN_QR_CODE"
	InstanceWorking    InstanceStatus = "WORKING"
	InstanceFailed     InstanceStatus = "FAILED"
	InstanceStopped    InstanceStatus = "STOPPED"
)

// Valid reports whether s is a known instance status
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceStarting, InstanceScanQRCode, InstanceWorking, InstanceFailed, InstanceStopped:
		return true
	}
	return false
}

// Instance is a gateway session bound to a tenant
type Instance struct {
	ID        string         `json:"id" db:"id"`
	TenantID  int            `json:"tenant_id" db:"tenant_id"`
	Status    InstanceStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
