package google

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// Scopes requested at consent time: spreadsheet read/write, profile, email
// and OpenID.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	oidc.ScopeOpenID,
}

// Auth runs Google's consent flow through a loopback redirect and issues
// bearer tokens. It holds no token state of its own.
type Auth struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client

	// openBrowser is replaced in tests.
	openBrowser func(url string)
}

func NewAuth(credentialsPath, redirectURL, revokeURL string) (*Auth, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %v", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %v", err)
	}

	config.RedirectURL = redirectURL

	return &Auth{
		config:      config,
		revokeURL:   revokeURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		openBrowser: openBrowser,
	}, nil
}

// ClientID identifies the OAuth client the credentials file describes.
func (a *Auth) ClientID() string {
	return a.config.ClientID
}

// RequestToken opens the consent page and blocks until the loopback callback
// delivers an authorization code, which is exchanged for a token.
func (a *Auth) RequestToken(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %q: %v", a.config.RedirectURL, err)
	}
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("unable to listen for OAuth callback on %s: %v", redirect.Host, err)
	}

	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Error: state mismatch", http.StatusBadRequest)
			return
		}
		if msg := q.Get("error"); msg != "" {
			fmt.Fprintf(w, "Error: %s", msg)
			select {
			case errChan <- fmt.Errorf("consent denied: %s", msg):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			fmt.Fprintf(w, "Error: No authorization code received")
			return
		}

		fmt.Fprintf(w, `
			<html>
				<head><title>Sesión iniciada</title></head>
				<body>
					<h1>Sesión iniciada</h1>
					<p>Puedes cerrar esta ventana.</p>
					<script>window.setTimeout(function(){window.close();}, 2000);</script>
				</body>
			</html>
		`)

		select {
		case codeChan <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			log.WithError(err).Warn("oauth callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	authURL := a.config.AuthCodeURL(state)
	log.WithField("url", authURL).Info("opening browser for Google consent")
	a.openBrowser(authURL)

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %v", err)
	}

	return tok, nil
}

// Revoke invalidates token at Google's revocation endpoint.
func (a *Auth) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("unable to build revoke request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

// openBrowser tries to open the URL in a browser
func openBrowser(url string) {
	var err error

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		log.WithError(err).Warn("failed to open browser, visit the URL manually")
	}
}
