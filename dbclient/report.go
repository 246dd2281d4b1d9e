package dbclient

import (
	"errors"
	"html/template"
	"io"
	"os"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

// GenericMessage is all a production report reveals
const GenericMessage = "The database is currently unavailable. Please try again later."

// ExitDatabase is the process exit code used by Fatal
const ExitDatabase = 2

var reportTpl = template.Must(template.New("db-error").Parse(
	`{{define "debug"}}<div class="db-error">
<h3>Database Error</h3>
{{- if .Op}}
<p class="db-error-op">{{.Op}}</p>
{{- end}}
<p class="db-error-message">{{.Before}}{{if .HasQuoted}}<strong>'{{.Quoted}}'</strong>{{.After}}{{end}}</p>
{{- if .Query}}
<pre class="db-error-query">{{.Query}}</pre>
{{- end}}
</div>
{{end}}{{define "generic"}}<div class="db-error">
<p>{{.}}</p>
</div>
{{end}}`))

type reportData struct {
	Op        string
	Query     string
	Before    string
	Quoted    string
	After     string
	HasQuoted bool
}

// Report writes err as an HTML fragment.
// In debug mode the driver message is split around its first single-quoted fragment,
// which is emphasized. Otherwise only GenericMessage is written.
func Report(w io.Writer, err error, debug bool) error {
	if !debug {
		return reportTpl.ExecuteTemplate(w, "generic", GenericMessage)
	}
	data := reportData{}
	msg := ""
	var de *sqldb.DriverError
	if errors.As(err, &de) {
		data.Op = de.Op
		data.Query = de.Query
		msg = de.Message()
	} else if err != nil {
		msg = err.Error()
	}
	data.Before, data.Quoted, data.After, data.HasQuoted = sqldb.SplitQuoted(msg)
	return reportTpl.ExecuteTemplate(w, "debug", data)
}

var exit = os.Exit

// Fatal reports err and terminates the process with ExitDatabase.
// For callers that cannot continue without the database.
func Fatal(w io.Writer, err error, debug bool) {
	_ = Report(w, err, debug)
	exit(ExitDatabase)
}
