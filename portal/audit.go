package portal

import (
	"context"
	"time"
)

// AuditReport lists the students whose payments exceed what they owe.
// A negative final due can appear after a batch is deleted, a cost is
// lowered or a discount is raised; it is reported, never clamped.
type AuditReport struct {
	At        time.Time
	Checked   int
	Overdrawn []StudentAccount
}

// AuditDues recomputes every student's due in one read-only snapshot.
func (s *Service) AuditDues(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{At: s.now(), Overdrawn: []StudentAccount{}}
	err := s.store.View(ctx, func(tx Tx) error {
		students, err := tx.ListStudents(ctx, StudentFilter{})
		if err != nil {
			return err
		}
		report.Checked = len(students)
		for i := range students {
			account, err := loadAccount(ctx, tx, &students[i])
			if err != nil {
				return err
			}
			if account.Due.Overdrawn() {
				report.Overdrawn = append(report.Overdrawn, *account)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
