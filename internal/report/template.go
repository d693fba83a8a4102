package report

import (
	"os"
	"path/filepath"
)

// defaultTemplate is the starter presentation template written by
// WriteDefaultTemplate. It renders the cover section and the interval table
// and nothing else.
const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Cover.Title}}: {{.Cover.Period}}</title>
  <style>
    body { font-family: sans-serif; margin: 2em; }
    table { border-collapse: collapse; margin-top: 1em; }
    th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
    th { background: #f0f0f0; }
    .cover p { margin: 0.2em 0; }
  </style>
</head>
<body>
  <div class="cover">
    <h1>{{.Cover.Title}}</h1>
    <p>Period: {{.Cover.Period}}</p>
    <p>Generated: {{.Cover.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
    <p>Records: {{.Cover.RecordCount}} across {{.Cover.BucketCount}} intervals</p>
    {{if .Cover.DefectCount}}<p>Skipped records: {{.Cover.DefectCount}}</p>{{end}}
  </div>
  <table>
    <tr><th>Date</th><th>Slot</th><th>Count</th><th>Value Sum</th></tr>
    {{range .Rows}}
    <tr>
      <td>{{.Bucket.Date}}</td>
      <td>{{.Bucket.SlotStart}}</td>
      <td>{{.Count}}</td>
      <td>{{if .ValueCount}}{{printf "%.2f" .ValueSum}}{{else}}-{{end}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>
`

// WriteDefaultTemplate writes the starter template to path unless a file is
// already there.
func WriteDefaultTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0600)
}
