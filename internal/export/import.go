package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

// ApplicationStore is the persistence used by ImportCSV. Get returns an
// error for which errors.IsNotFound is true when the id is unknown.
type ApplicationStore interface {
	Get(ctx context.Context, userID, id uint) (*entities.JobApplication, error)
	Create(ctx context.Context, app *entities.JobApplication) error
	Update(ctx context.Context, app *entities.JobApplication) error
}

// ImportResult counts the rows applied by ImportCSV.
type ImportResult struct {
	Created int
	Updated int
}

// ImportCSV upserts applications from a CSV export. Rows whose numeric id
// belongs to the user update that application; all others are created.
func ImportCSV(ctx context.Context, store ApplicationStore, userID uint, raw []byte) (ImportResult, error) {
	return importCSV(ctx, store, userID, raw, time.Now())
}

func importCSV(ctx context.Context, store ApplicationStore, userID uint, raw []byte, now time.Time) (ImportResult, error) {
	var result ImportResult

	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(strings.NewReader(strings.ToValidUTF8(string(raw), "�")))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return result, nil
	}
	if err != nil {
		return result, importError(err, 1)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return result, importError(err, line)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}

		app, err := existing(ctx, store, userID, strings.TrimSpace(field("id")))
		if err != nil {
			return result, err
		}
		isNew := app == nil
		if isNew {
			app = &entities.JobApplication{UserID: userID}
		}

		app.Title = strings.TrimSpace(field("title"))
		app.Company = strings.TrimSpace(field("company"))
		app.Location = strings.TrimSpace(field("location"))
		app.Source = strings.TrimSpace(field("source"))
		app.Status = parseStatus(field("status"))
		app.Notes = field("notes")
		app.RecruiterReplyAt = parseDate(field("recruiter_reply_at"))
		if applied := parseDate(field("applied_at")); applied != nil {
			app.AppliedAt = *applied
		} else {
			y, m, d := now.Date()
			app.AppliedAt = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}

		if isNew {
			if err := store.Create(ctx, app); err != nil {
				return result, err
			}
			result.Created++
		} else {
			if err := store.Update(ctx, app); err != nil {
				return result, err
			}
			result.Updated++
		}
	}

	GetLogger().Info("csv import finished",
		logger.Uint("user_id", userID),
		logger.Int("created", result.Created),
		logger.Int("updated", result.Updated))
	return result, nil
}

// existing returns the user's application for a numeric id, or nil.
func existing(ctx context.Context, store ApplicationStore, userID uint, rawID string) (*entities.JobApplication, error) {
	if rawID == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, nil
	}
	app, err := store.Get(ctx, userID, uint(id))
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return app, err
}

// parseStatus maps empty or unknown statuses to applied.
func parseStatus(s string) entities.ApplicationStatus {
	status := entities.ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return entities.StatusApplied
	}
	return status
}

var dateLayouts = []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05", time.DateTime}

// parseDate accepts ISO dates and datetimes; anything else is nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

func importError(err error, line int) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryValidation).
		Context("operation", "import_csv").
		Context("line", line).
		Build()
}
