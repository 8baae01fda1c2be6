package identity

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Callback result types.
const (
	CallbackSuccess = "success"
	CallbackCancel  = "cancel"
	CallbackDismiss = "dismiss"
	CallbackError   = "error"
)

// CallbackResult is what the provider's redirect carried back.
type CallbackResult struct {
	Type         string
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    int
	Code         string
	Error        string
}

const callbackPath = "/callback"

// relayPage moves a token response out of the URL fragment, which browsers
// never send to the server, into the query string.
var relayPage = template.Must(template.New("relay").Parse(`<!doctype html>
<html><body><p>Completing sign-in...</p>
<script>
if (location.hash.length > 1) {
  location.replace("{{.}}?" + location.hash.substring(1));
} else {
  location.replace("{{.}}?error=dismiss");
}
</script></body></html>`))

// newCallbackRouter serves the redirect target. The first result with the
// expected state is delivered to results; later ones are dropped.
func newCallbackRouter(state string, results chan<- CallbackResult) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Use(middleware.Recoverer)

	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if len(q) == 0 {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_ = relayPage.Execute(w, callbackPath)
			return
		}

		if q.Get("state") != state && q.Get("error") != "dismiss" {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		res := CallbackResult{
			Type:         CallbackSuccess,
			AccessToken:  q.Get("access_token"),
			RefreshToken: q.Get("refresh_token"),
			IDToken:      q.Get("id_token"),
			Code:         q.Get("code"),
		}
		res.ExpiresIn, _ = strconv.Atoi(q.Get("expires_in"))

		switch e := q.Get("error"); e {
		case "":
		case "access_denied":
			res.Type = CallbackCancel
		case "dismiss":
			res.Type = CallbackDismiss
		default:
			res.Type = CallbackError
			res.Error = e
			if d := q.Get("error_description"); d != "" {
				res.Error = e + ": " + d
			}
		}

		select {
		case results <- res:
		default:
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("You can close this window and return to docvault."))
	})

	return r
}
