package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"github.com/subwaytime/mtapi/internal/transit"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

// WebUI serves human readable dumps of the in-memory transit state.
type WebUI struct {
	Transit *transit.Manager
}

type debugData struct {
	Title string
	Pre   string
}

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{
		Title: title,
		Pre:   dumpConfig.Sdump(data),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")

	var data interface{}
	var title string

	snap := webUI.Transit.Snapshot()

	switch dataType {
	case "stations":
		data = snap.Stations
		title = "Stations"
	case "stops":
		data = snap.Stops
		title = "Stop Index"
	case "routes":
		data = webUI.Transit.Routes()
		title = "Scheduled Routes"
	case "snapshot":
		data = struct {
			Timestamp string
			BuiltAt   string
			Stations  int
		}{
			Timestamp: snap.Timestamp.String(),
			BuiltAt:   snap.BuiltAt.String(),
			Stations:  len(snap.Stations),
		}
		title = "Published Snapshot"
	case "health":
		data = map[string]bool{
			"threaded": webUI.Transit.Threaded(),
			"alive":    webUI.Transit.Alive(),
		}
		title = "Refresher Health"
	default:
		data = map[string]string{
			"error": "Please use one of the following: stations, stops, routes, snapshot, health.",
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
