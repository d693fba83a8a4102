package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/mail"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
	"github.com/telhawk-systems/telhawk-reporting/internal/recipients"
	"github.com/telhawk-systems/telhawk-reporting/internal/report"
	"github.com/telhawk-systems/telhawk-reporting/internal/source"
)

const testTemplate = `<html><body>
<h1>{{.Cover.Title}}</h1>
<p>{{.Cover.Period}} records={{.Cover.RecordCount}} buckets={{.Cover.BucketCount}}</p>
<table>{{range .Rows}}<tr><td>{{.Bucket.Date}}</td><td>{{.Bucket.SlotStart}}</td><td>{{.Count}}</td></tr>{{end}}</table>
</body></html>`

const recipientsCSV = "to,cc,bcc\na@example.com,,c@example.com\nb@example.com,,\n"

// fakeSource returns a fixed record set and tracks fetch calls.
type fakeSource struct {
	records    []models.RawRecord
	err        error
	calls      int
	lastWindow source.Window
}

func (f *fakeSource) Fetch(_ context.Context, w source.Window) ([]models.RawRecord, error) {
	f.calls++
	f.lastWindow = w
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) Name() string { return "fake" }

// fakeMailer records deliveries and can be forced to fail.
type fakeMailer struct {
	mode     string
	err      error
	calls    int
	messages []mail.Message
}

func (f *fakeMailer) Deliver(_ context.Context, msg mail.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeMailer) Mode() string { return f.mode }

func march(day, hour, min int) time.Time {
	return time.Date(2024, time.March, day, hour, min, 0, 0, time.Local)
}

func rec(ts time.Time, category string) models.RawRecord {
	return models.RawRecord{Timestamp: ts, Category: category, Agent: "agent-1"}
}

type testEnv struct {
	base       string
	src        *fakeSource
	preview    *fakeMailer
	sender     *fakeMailer
	definition *report.Definition
	recipients recipients.Source
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	tmplPath := filepath.Join(dir, "interval.html.tmpl")
	require.NoError(t, os.WriteFile(tmplPath, []byte(testTemplate), 0o644))

	csvPath := filepath.Join(dir, "recipients.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(recipientsCSV), 0o644))

	return &testEnv{
		base: filepath.Join(dir, "archive"),
		src: &fakeSource{records: []models.RawRecord{
			rec(march(1, 9, 5), "login"),
			rec(march(1, 9, 20), "login"),
			rec(march(1, 9, 31), "logout"),
		}},
		preview: &fakeMailer{mode: "preview"},
		sender:  &fakeMailer{mode: "send"},
		definition: &report.Definition{
			Name:     "interval-activity",
			Title:    "Interval Activity Report",
			Template: tmplPath,
			FileName: "{name}-{period}.html",
			Greeting: "Hello,\n\nPlease find attached the {title} for {period}.\n",
		},
		recipients: recipients.Source{Path: csvPath},
	}
}

func (e *testEnv) dispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := New(Deps{
		Source:     e.src,
		Definition: e.definition,
		Recipients: e.recipients,
		Preview:    e.preview,
		Sender:     e.sender,
		Logger:     logging.New(slog.LevelError, "text"),
	})
	require.NoError(t, err)
	return d
}

func (e *testEnv) request(mode Mode) RunRequest {
	return RunRequest{BasePath: e.base, PeriodKey: "2024-03", Mode: mode}
}

func (e *testEnv) periodDir() string {
	return filepath.Join(e.base, "2024-03")
}

func TestRunSendMode(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	res, err := d.Run(context.Background(), env.request(ModeSend))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "2024-03", res.Period)
	assert.Equal(t, "send", res.Mode)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Buckets)
	assert.Equal(t, 0, res.Defects)
	assert.Equal(t, "2024-03", res.Artifact.PeriodFolder)
	assert.Equal(t, "interval-activity-2024-03.html", res.Artifact.FileName)

	// The fetch window covers the whole period.
	assert.True(t, env.src.lastWindow.From.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.Local)))
	assert.True(t, env.src.lastWindow.To.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.Local)))

	raw, err := os.ReadFile(res.Artifact.FullPath)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "<tr><td>2024-03-01</td><td>09:00</td><td>2</td></tr>")
	assert.Contains(t, content, "<tr><td>2024-03-01</td><td>09:30</td><td>1</td></tr>")
	assert.Contains(t, content, "records=3 buckets=2")

	// The artifact carries aggregates only, never raw record times.
	assert.NotContains(t, content, "09:05")
	assert.NotContains(t, content, "09:20")
	assert.NotContains(t, content, "09:31")

	require.Equal(t, 1, env.sender.calls)
	assert.Equal(t, 0, env.preview.calls)

	msg := env.sender.messages[0]
	assert.Equal(t, "interval-activity-2024-03", msg.Subject)
	assert.Equal(t, res.Artifact.FullPath, msg.Attachment)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.To)
	assert.Empty(t, msg.CC)
	assert.Equal(t, []string{"c@example.com"}, msg.BCC)
	assert.Contains(t, msg.Body, "Interval Activity Report")
	assert.Contains(t, msg.Body, "2024-03")
}

func TestRunPreviewMode(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	res, err := d.Run(context.Background(), env.request(ModePreview))
	require.NoError(t, err)

	assert.Equal(t, "preview", res.Mode)
	assert.Equal(t, 1, env.preview.calls)
	assert.Equal(t, 0, env.sender.calls)
}

func TestRunModeNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	d, err := New(Deps{
		Source:     env.src,
		Definition: env.definition,
		Recipients: env.recipients,
		Sender:     env.sender,
		Logger:     logging.New(slog.LevelError, "text"),
	})
	require.NoError(t, err)

	_, err = d.Run(context.Background(), env.request(ModePreview))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	// The mode check happens before any record is fetched.
	assert.Equal(t, 0, env.src.calls)
}

func TestRunUnknownMode(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	_, err := d.Run(context.Background(), env.request(Mode("mail")))
	require.Error(t, err)
	assert.Equal(t, 0, env.src.calls)
}

func TestRunInvalidPeriod(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	_, err := d.Run(context.Background(), RunRequest{BasePath: env.base, PeriodKey: "2024-13", Mode: ModeSend})
	require.Error(t, err)
	assert.Equal(t, 0, env.src.calls)
}

func TestRunRerunReplacesArtifact(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)
	ctx := context.Background()

	res, err := d.Run(ctx, env.request(ModeSend))
	require.NoError(t, err)

	entries, err := os.ReadDir(env.periodDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A late record arrives and the same period is dispatched again.
	env.src.records = append(env.src.records, rec(march(1, 9, 10), "login"))

	res2, err := d.Run(ctx, env.request(ModeSend))
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.FullPath, res2.Artifact.FullPath)
	assert.Equal(t, 4, res2.Records)

	entries, err = os.ReadDir(env.periodDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(res2.Artifact.FullPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<tr><td>2024-03-01</td><td>09:00</td><td>3</td></tr>")
}

func TestRunMissingTemplate(t *testing.T) {
	env := newTestEnv(t)
	env.definition.Template = filepath.Join(t.TempDir(), "missing.tmpl")
	d := env.dispatcher(t)

	_, err := d.Run(context.Background(), env.request(ModeSend))
	require.Error(t, err)

	var buildErr *models.BuildError
	assert.ErrorAs(t, err, &buildErr)
	assert.Equal(t, models.ExitBuild, models.ExitCode(err))

	// Nothing was placed and no mail left the pipeline.
	_, statErr := os.Stat(env.base)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, env.sender.calls)
}

func TestRunEmptyToColumn(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.recipients.Path, []byte("to,cc,bcc\n,x@example.com,\n"), 0o644))
	d := env.dispatcher(t)

	_, err := d.Run(context.Background(), env.request(ModeSend))
	require.Error(t, err)

	var resErr *models.RecipientResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, models.ErrNoRecipients)
	assert.Equal(t, models.ExitRecipients, models.ExitCode(err))

	// The artifact was already placed; only the mail handoff is blocked.
	entries, readErr := os.ReadDir(env.periodDir())
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
	assert.Equal(t, 0, env.sender.calls)
}

func TestRunDispatchFailureIsRetrySafe(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("smtp unavailable")
	d := env.dispatcher(t)
	ctx := context.Background()

	_, err := d.Run(ctx, env.request(ModeSend))
	require.Error(t, err)

	var dispatchErr *models.DispatchError
	assert.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, models.ExitDispatch, models.ExitCode(err))

	// The stored artifact survives the failed handoff.
	entries, readErr := os.ReadDir(env.periodDir())
	require.NoError(t, readErr)
	require.Len(t, entries, 1)

	// Retrying the same run succeeds without duplicating the artifact.
	env.sender.err = nil
	_, err = d.Run(ctx, env.request(ModeSend))
	require.NoError(t, err)

	entries, readErr = os.ReadDir(env.periodDir())
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
	assert.Equal(t, 2, env.sender.calls)
}

func TestRunSourceFailure(t *testing.T) {
	env := newTestEnv(t)
	env.src.err = errors.New("connection refused")
	d := env.dispatcher(t)

	_, err := d.Run(context.Background(), env.request(ModeSend))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch records")

	_, statErr := os.Stat(env.base)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, 0, env.sender.calls)
}

func TestRunReportsDefects(t *testing.T) {
	env := newTestEnv(t)
	env.src.records = append(env.src.records, models.RawRecord{Ref: "line 9"})
	d := env.dispatcher(t)

	res, err := d.Run(context.Background(), env.request(ModeSend))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 1, res.Defects)

	raw, err := os.ReadFile(res.Artifact.FullPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "records=3")
}

func TestRunDropsRecordsOutsidePeriod(t *testing.T) {
	env := newTestEnv(t)
	env.src.records = append(env.src.records, rec(time.Date(2024, time.April, 2, 10, 0, 0, 0, time.Local), "login"))
	d := env.dispatcher(t)

	res, err := d.Run(context.Background(), env.request(ModeSend))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Buckets)

	raw, err := os.ReadFile(res.Artifact.FullPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "2024-04-02")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "preview", want: ModePreview},
		{input: "send", want: ModeSend},
		{input: " Send ", want: ModeSend},
		{input: "", wantErr: true},
		{input: "mail", wantErr: true},
		{input: "dry-run", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := New(Deps{Recipients: env.recipients, Sender: env.sender})
	assert.Error(t, err)

	_, err = New(Deps{Source: env.src, Sender: env.sender})
	assert.Error(t, err)

	_, err = New(Deps{Source: env.src, Recipients: env.recipients})
	assert.Error(t, err)
}
