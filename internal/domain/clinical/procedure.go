package clinical

import (
	"time"

	"github.com/clinic/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Procedure is a performed clinical service whose material consumption is
// settled against warehouse stock exactly once. The deduction marker pair is
// the idempotency guard: set together, never cleared.
type Procedure struct {
	shared.BaseEntity
	AppointmentID       *uuid.UUID `gorm:"type:uuid;index"`
	ServiceID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	ServiceName         string     `gorm:"type:varchar(150)"`
	PatientName         string     `gorm:"type:varchar(150)"`
	PerformedAt         time.Time  `gorm:"not null"`
	MaterialsDeductedAt *time.Time
	MaterialsDeductedBy string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Procedure) TableName() string {
	return "procedures"
}

// NewProcedure creates a procedure record pending material deduction
func NewProcedure(serviceID uuid.UUID, serviceName string, performedAt time.Time) (*Procedure, error) {
	if serviceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Procedure requires a service reference")
	}
	return &Procedure{
		BaseEntity:  shared.NewBaseEntity(),
		ServiceID:   serviceID,
		ServiceName: serviceName,
		PerformedAt: performedAt,
	}, nil
}

// MaterialsDeducted reports whether stock has already been settled
func (p *Procedure) MaterialsDeducted() bool {
	return p.MaterialsDeductedAt != nil
}

// MarkMaterialsDeducted stamps the idempotency marker. Returns an error if the
// procedure was already settled.
func (p *Procedure) MarkMaterialsDeducted(actor shared.Actor) error {
	if p.MaterialsDeducted() {
		return shared.NewDomainError("INVALID_STATE", "Materials already deducted for this procedure")
	}
	now := time.Now()
	p.MaterialsDeductedAt = &now
	p.MaterialsDeductedBy = actor.Name
	p.Touch()
	return nil
}
