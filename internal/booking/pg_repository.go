package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func pgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.nanosSinceMidnight() / 1000, Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	us := t.Microseconds
	sec := us / 1_000_000
	return TimeOfDay{
		Hour:   int(sec / 3600),
		Minute: int(sec / 60 % 60),
		Second: int(sec % 60),
		Nano:   int(us%1_000_000) * 1000,
	}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.SpecializationID, &d.Specialization, &d.ConsultationFee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var (
		s          Slot
		start, end pgtype.Time
	)
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &start, &end, &s.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	s.Start = fromPgTime(start)
	s.End = fromPgTime(end)
	return &s, nil
}

const appointmentColumns = `
	id, patient_id, doctor_id, slot_id, appointment_date, start_time, end_time,
	status, appointment_type, consultation_fee, symptoms, notes,
	cancellation_reason, cancelled_at, cancelled_by_role, cancelled_by_id,
	created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a             Appointment
		start, end    pgtype.Time
		cancelledRole *string
		cancelledByID *int64
	)
	err := row.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.SlotID, &a.Date, &start, &end,
		&a.Status, &a.Type, &a.ConsultationFee, &a.Symptoms, &a.Notes,
		&a.CancellationReason, &a.CancelledAt, &cancelledRole, &cancelledByID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	a.Start = fromPgTime(start)
	a.End = fromPgTime(end)
	if cancelledRole != nil && cancelledByID != nil {
		role, err := ParseRole(*cancelledRole)
		if err != nil {
			return nil, fmt.Errorf("scan appointment %d: %w", a.ID, err)
		}
		a.CancelledBy = &CancelActor{Role: role, ID: *cancelledByID}
	}
	return &a, nil
}

const paymentColumns = `
	id, payment_id, patient_id, appointment_id, amount, method, status, transaction_id,
	upi_id, cardholder_name, card_number, expiry_date, cvv, billing_address, mobile_number,
	draft_doctor_id, draft_slot_id, draft_date, draft_start_time, draft_end_time,
	draft_type, draft_symptoms, draft_notes, payment_date, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p                    Payment
		draftStart, draftEnd pgtype.Time
	)
	err := row.Scan(
		&p.ID, &p.PaymentID, &p.PatientID, &p.AppointmentID, &p.Amount, &p.Method, &p.Status, &p.TransactionID,
		&p.Details.UPIID, &p.Details.CardholderName, &p.Details.CardNumber, &p.Details.ExpiryDate,
		&p.Details.CVV, &p.Details.BillingAddress, &p.Details.MobileNumber,
		&p.Draft.DoctorID, &p.Draft.SlotID, &p.Draft.Date, &draftStart, &draftEnd,
		&p.Draft.Type, &p.Draft.Symptoms, &p.Draft.Notes, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	p.Details.Method = p.Method
	p.Draft.PatientID = p.PatientID
	p.Draft.Start = fromPgTime(draftStart)
	p.Draft.End = fromPgTime(draftEnd)
	p.Draft.ConsultationFee = p.Amount
	return &p, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id int64) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT d.id, d.first_name, d.last_name, d.specialization_id, sp.name, d.consultation_fee
		FROM doctors d
		JOIN specializations sp ON sp.id = d.specialization_id
		WHERE d.id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id int64) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, status
		FROM doctor_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) FindAvailableSlots(ctx context.Context, specializationID, doctorID int64, date time.Time, notBefore TimeOfDay) ([]AvailableSlot, error) {
	var cutoff pgtype.Time
	if notBefore != (TimeOfDay{}) {
		cutoff = pgTime(notBefore)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.doctor_id, s.slot_date, s.start_time, s.end_time, s.status,
		       d.id, d.first_name, d.last_name, d.specialization_id, sp.name, d.consultation_fee
		FROM doctor_slots s
		JOIN doctors d ON d.id = s.doctor_id
		JOIN specializations sp ON sp.id = d.specialization_id
		WHERE s.slot_date = $1
		  AND s.status = 'AVAILABLE'
		  AND ($2::bigint = 0 OR d.specialization_id = $2)
		  AND ($3::bigint = 0 OR s.doctor_id = $3)
		  AND ($4::time IS NULL OR s.start_time > $4)
		ORDER BY s.start_time, s.id
	`, dateOnly(date), specializationID, doctorID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailableSlot
	for rows.Next() {
		var (
			as         AvailableSlot
			start, end pgtype.Time
		)
		err := rows.Scan(
			&as.Slot.ID, &as.Slot.DoctorID, &as.Slot.Date, &start, &end, &as.Slot.Status,
			&as.Doctor.ID, &as.Doctor.FirstName, &as.Doctor.LastName,
			&as.Doctor.SpecializationID, &as.Doctor.Specialization, &as.Doctor.ConsultationFee,
		)
		if err != nil {
			return nil, err
		}
		as.Slot.Start = fromPgTime(start)
		as.Slot.End = fromPgTime(end)
		result = append(result, as)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateSlotStatus(ctx context.Context, id int64, from, to SlotStatus) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE doctor_slots
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING id, doctor_id, slot_date, start_time, end_time, status
	`, id, to, from)
	return scanSlot(row)
}

func (r *PgRepository) SlotExists(ctx context.Context, doctorID int64, date time.Time, start TimeOfDay, status SlotStatus) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM doctor_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3 AND status = $4
		)
	`, doctorID, dateOnly(date), pgTime(start), status).Scan(&exists)
	return exists, err
}

func (r *PgRepository) InsertSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		row := tx.QueryRow(ctx, `
			INSERT INTO doctor_slots (doctor_id, slot_date, start_time, end_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			RETURNING id, doctor_id, slot_date, start_time, end_time, status
		`, s.DoctorID, dateOnly(s.Date), pgTime(s.Start), pgTime(s.End), s.Status)

		created, err := scanSlot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PgRepository) FindActiveTemplates(ctx context.Context, doctorID int64) ([]SlotTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_time, end_time, duration_minutes, active
		FROM slot_templates
		WHERE doctor_id = $1 AND active
		ORDER BY day_of_week, start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotTemplate
	for rows.Next() {
		var (
			t          SlotTemplate
			day        int
			start, end pgtype.Time
		)
		if err := rows.Scan(&t.ID, &t.DoctorID, &day, &start, &end, &t.DurationMinutes, &t.Active); err != nil {
			return nil, err
		}
		t.DayOfWeek = time.Weekday(day)
		t.Start = fromPgTime(start)
		t.End = fromPgTime(end)
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreatePendingPayment(ctx context.Context, p *Payment) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO payments (
			payment_id, patient_id, amount, method, status, transaction_id,
			upi_id, cardholder_name, card_number, expiry_date, cvv, billing_address, mobile_number,
			draft_doctor_id, draft_slot_id, draft_date, draft_start_time, draft_end_time,
			draft_type, draft_symptoms, draft_notes, payment_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, 'PENDING', $5,
		        $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, now(), now())
		RETURNING `+paymentColumns+`
	`,
		p.PaymentID, p.PatientID, p.Amount, p.Method, p.TransactionID,
		p.Details.UPIID, p.Details.CardholderName, p.Details.CardNumber, p.Details.ExpiryDate,
		p.Details.CVV, p.Details.BillingAddress, p.Details.MobileNumber,
		p.Draft.DoctorID, p.Draft.SlotID, dateOnly(p.Draft.Date), pgTime(p.Draft.Start), pgTime(p.Draft.End),
		p.Draft.Type, p.Draft.Symptoms, p.Draft.Notes, p.PaymentDate,
	)
	return scanPayment(row)
}

func (r *PgRepository) GetPaymentByPaymentID(ctx context.Context, paymentID string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE payment_id = $1
	`, paymentID)
	return scanPayment(row)
}

func (r *PgRepository) FindOpenPaymentForSlot(ctx context.Context, slotID, patientID int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE draft_slot_id = $1 AND patient_id = $2 AND status = 'PENDING'
		LIMIT 1
	`, slotID, patientID)
	return scanPayment(row)
}

func (r *PgRepository) UpdatePaymentStatus(ctx context.Context, paymentID string, from, to PaymentStatus) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE payment_id = $1 AND status = $3
		RETURNING `+paymentColumns+`
	`, paymentID, to, from)
	return scanPayment(row)
}

// ConfirmPaymentAndCreateAppointment performs handshake step 2 in a single
// transaction: payment -> SUCCESS, slot -> BOOKED (guarded on AVAILABLE),
// appointment inserted from the draft copy, payment linked.
func (r *PgRepository) ConfirmPaymentAndCreateAppointment(ctx context.Context, paymentID string) (*Appointment, *Payment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE payments
		SET status = 'SUCCESS', updated_at = now()
		WHERE payment_id = $1 AND status = 'PENDING' AND appointment_id IS NULL
		RETURNING `+paymentColumns+`
	`, paymentID)
	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, nil, ErrPaymentNotPending
		}
		return nil, nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE doctor_slots
		SET status = 'BOOKED', updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE'
	`, payment.Draft.SlotID)
	if err != nil {
		return nil, nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil, ErrSlotNotAvailable
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO appointments (
			patient_id, doctor_id, slot_id, appointment_date, start_time, end_time,
			status, appointment_type, consultation_fee, symptoms, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'SCHEDULED', $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`,
		payment.PatientID, payment.Draft.DoctorID, payment.Draft.SlotID,
		dateOnly(payment.Draft.Date), pgTime(payment.Draft.Start), pgTime(payment.Draft.End),
		payment.Draft.Type, payment.Amount, payment.Draft.Symptoms, payment.Draft.Notes,
	)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payments SET appointment_id = $2, updated_at = now() WHERE id = $1
	`, payment.ID, appt.ID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	payment.AppointmentID = &appt.ID
	return appt, payment, nil
}

func (r *PgRepository) FindStalePendingPayments(ctx context.Context, olderThan time.Time) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE status = 'PENDING' AND created_at < $1
	`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id int64) (*AppointmentDetail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	return &AppointmentDetail{Appointment: *appt, Patient: patient, Doctor: doctor}, nil
}

func (r *PgRepository) FindConflictingAppointments(ctx context.Context, doctorID int64, date time.Time, start TimeOfDay) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND start_time = $3 AND status = 'SCHEDULED'
	`, doctorID, dateOnly(date), pgTime(start))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// RescheduleAppointment swaps the appointment onto the new slot: the old slot
// is released, the new one booked (guarded on AVAILABLE) and the date/time
// fields overwritten, all in one transaction.
func (r *PgRepository) RescheduleAppointment(ctx context.Context, id int64, newSlotID int64, date time.Time, start, end TimeOfDay) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, err
	}

	if current.SlotID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE doctor_slots SET status = 'AVAILABLE', updated_at = now()
			WHERE id = $1 AND status = 'BOOKED'
		`, *current.SlotID); err != nil {
			return nil, err
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE doctor_slots SET status = 'BOOKED', updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE'
	`, newSlotID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSlotNotAvailable
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET slot_id = $2, appointment_date = $3, start_time = $4, end_time = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, newSlotID, dateOnly(date), pgTime(start), pgTime(end))
	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id int64, reason string, actor CancelActor, at time.Time) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, err
	}

	if current.SlotID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE doctor_slots SET status = 'AVAILABLE', updated_at = now()
			WHERE id = $1 AND status = 'BOOKED'
		`, *current.SlotID); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    cancellation_reason = $2,
		    cancelled_at = $3,
		    cancelled_by_role = $4,
		    cancelled_by_id = $5,
		    slot_id = NULL,
		    updated_at = now()
		WHERE id = $1 AND status = 'SCHEDULED'
		RETURNING `+appointmentColumns+`
	`, id, reason, at, actor.Role.String(), actor.ID)
	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'COMPLETED', updated_at = now()
		WHERE id = $1 AND status = 'SCHEDULED'
		RETURNING `+appointmentColumns+`
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID int64, f AppointmentFilter) ([]AppointmentDetail, error) {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	now := f.Now
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND ($2::text IS NULL OR status = $2)
		  AND (NOT $3::bool OR appointment_date > $5::date
		       OR (appointment_date = $5 AND start_time >= $6))
		  AND (NOT $4::bool OR appointment_date < $5::date
		       OR (appointment_date = $5 AND start_time < $6))
		ORDER BY appointment_date, start_time
		LIMIT $7 OFFSET $8
	`, patientID, status, f.Upcoming, f.Past, dateOnly(now), pgTime(TimeOfDayFrom(now)), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Hydrate doctors once per listing; patients repeat so a single lookup
	// covers them all.
	patient, err := r.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	doctors := make(map[int64]*Doctor)
	result := make([]AppointmentDetail, 0, len(appts))
	for _, a := range appts {
		doc, ok := doctors[a.DoctorID]
		if !ok {
			doc, err = r.GetDoctorByID(ctx, a.DoctorID)
			if err != nil {
				return nil, err
			}
			doctors[a.DoctorID] = doc
		}
		result = append(result, AppointmentDetail{Appointment: a, Patient: patient, Doctor: doc})
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payment_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AppointmentID, ev.PaymentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
