package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/databases"
	"github.com/kushalk47/aarogya-api/models"
)

// DefaultReportType labels reports saved from the consultation flow
const DefaultReportType = "AI Generated Consultation"

// Extraction outcomes reported by SaveReport
const (
	ExtractionMerged       = "merged"
	ExtractionSkipped      = "skipped"
	ExtractionPendingRetry = "pending_retry"
	ExtractionFailed       = "failed"
)

// SaveResult describes what SaveReport stored
type SaveResult struct {
	ContentID        string
	ReportID         string
	ExtractionStatus string
}

// RetryStats counts the outcome of one retry pass
type RetryStats struct {
	Processed int
	Merged    int
	Failed    int
}

// ReportProcessor saves report bodies and feeds them through extraction and
// merge. Saving the body never depends on extraction succeeding; a failed
// extraction is recorded and retried later.
type ReportProcessor struct {
	loader      *ContextLoader
	contents    *ContentStore
	extractor   *Extractor
	merger      *RecordMerger
	pending     databases.PendingExtractionDatabase
	maxAttempts int
	now         func() time.Time
}

// NewReportProcessor wires a processor. maxAttempts bounds how many extraction
// attempts a saved report gets before it is marked failed.
func NewReportProcessor(loader *ContextLoader, contents *ContentStore, extractor *Extractor, merger *RecordMerger, pending databases.PendingExtractionDatabase, maxAttempts int) *ReportProcessor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ReportProcessor{
		loader:      loader,
		contents:    contents,
		extractor:   extractor,
		merger:      merger,
		pending:     pending,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// SaveReport stores text for the patient, links it from the medical record and
// merges the entities it mentions. Passing contentID edits that body in place;
// it must be a body the patient's record already references.
func (p *ReportProcessor) SaveReport(ctx context.Context, patientID, doctorID, text, contentID, reportType string) (SaveResult, error) {
	if strings.TrimSpace(text) == "" {
		return SaveResult{}, ErrEmptyInput
	}
	pc, err := p.loader.Load(ctx, patientID)
	if err != nil {
		return SaveResult{}, err
	}
	doctor, err := p.loader.LoadDoctor(ctx, doctorID)
	if err != nil {
		zap.S().Warnw("saving report without doctor context", "doctor_id", doctorID, "error", err)
		doctor = bson.M{}
	}
	if contentID != "" && !pc.Record.HasReportContent(contentID) {
		return SaveResult{}, ErrContentNotOwned
	}

	storedID, err := p.contents.Put(ctx, text, contentID)
	if err != nil {
		return SaveResult{}, err
	}
	result := SaveResult{ContentID: storedID}

	if !pc.Record.HasReportContent(storedID) {
		ref := models.ReportRef{
			ReportID:   uuid.NewString(),
			ReportType: reportType,
			Date:       p.now().UTC(),
			ContentID:  storedID,
		}
		if strings.TrimSpace(ref.ReportType) == "" {
			ref.ReportType = DefaultReportType
		}
		_, err := p.merger.Update(ctx, patientID, func(r *models.MedicalRecord) *models.MedicalRecord {
			if !r.HasReportContent(storedID) {
				r.Reports = append(r.Reports, ref)
			}
			return r
		})
		if err != nil {
			return result, err
		}
		result.ReportID = ref.ReportID
	}

	set, err := p.extractor.Extract(ctx, text, pc, doctor)
	if err == nil && set.Empty() {
		result.ExtractionStatus = ExtractionSkipped
		return result, nil
	}
	if err == nil {
		_, err = p.merger.MergeIntoRecord(ctx, patientID, set)
	}
	if err != nil {
		zap.S().Errorw("report saved but entity merge failed, flagging for retry",
			"patient_id", patientID,
			"content_id", storedID,
			"error", err)
		if ferr := p.flag(ctx, patientID, doctorID, storedID, err); ferr != nil {
			zap.S().Errorw("failed to flag extraction for retry", "content_id", storedID, "error", ferr)
		}
		result.ExtractionStatus = ExtractionPendingRetry
		if p.maxAttempts <= 1 {
			result.ExtractionStatus = ExtractionFailed
		}
		return result, nil
	}
	result.ExtractionStatus = ExtractionMerged
	return result, nil
}

// flag records the failed first attempt. With a single allowed attempt there
// is nothing left to retry, so the item is written as failed.
func (p *ReportProcessor) flag(ctx context.Context, patientID, doctorID, contentID string, cause error) error {
	now := p.now().UTC()
	status := models.ExtractionPending
	if p.maxAttempts <= 1 {
		status = models.ExtractionFailed
	}
	_, err := p.pending.InsertOne(ctx, &models.PendingExtraction{
		PatientID: patientID,
		DoctorID:  doctorID,
		ContentID: contentID,
		Status:    status,
		Attempts:  1,
		LastError: cause.Error(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return err
}

// RetryPending makes one more extraction attempt for every flagged report
func (p *ReportProcessor) RetryPending(ctx context.Context) (RetryStats, error) {
	var stats RetryStats
	items, err := p.pending.Find(ctx, bson.M{
		"status":   models.ExtractionPending,
		"attempts": bson.M{"$lt": p.maxAttempts},
	})
	if err != nil {
		return stats, err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Processed++
		err := p.retryOne(ctx, item)
		if err == nil {
			stats.Merged++
			p.mark(ctx, item, models.ExtractionDone, item.Attempts+1, "")
			continue
		}

		attempts := item.Attempts + 1
		status := models.ExtractionPending
		if attempts >= p.maxAttempts || errors.Is(err, ErrContentNotFound) || errors.Is(err, ErrPatientNotFound) {
			status = models.ExtractionFailed
			stats.Failed++
		}
		zap.S().Warnw("extraction retry failed",
			"content_id", item.ContentID,
			"attempts", attempts,
			"status", status,
			"error", err)
		p.mark(ctx, item, status, attempts, err.Error())
	}
	return stats, nil
}

func (p *ReportProcessor) retryOne(ctx context.Context, item models.PendingExtraction) error {
	text, err := p.contents.Get(ctx, item.ContentID)
	if err != nil {
		return err
	}
	pc, err := p.loader.Load(ctx, item.PatientID)
	if err != nil {
		return err
	}
	doctor, err := p.loader.LoadDoctor(ctx, item.DoctorID)
	if err != nil {
		doctor = bson.M{}
	}
	set, err := p.extractor.Extract(ctx, text, pc, doctor)
	if err != nil {
		return err
	}
	if set.Empty() {
		return nil
	}
	_, err = p.merger.MergeIntoRecord(ctx, item.PatientID, set)
	return err
}

func (p *ReportProcessor) mark(ctx context.Context, item models.PendingExtraction, status string, attempts int, lastErr string) {
	_, err := p.pending.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{
		"$set": bson.M{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastErr,
			"updated_at": p.now().UTC(),
		},
	})
	if err != nil {
		zap.S().Errorw("failed to update pending extraction", "id", item.ID.Hex(), "error", err)
	}
}
