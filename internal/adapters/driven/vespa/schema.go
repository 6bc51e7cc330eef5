package vespa

import (
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"
)

//go:embed schemas/services.xml schemas/chunk.sd.tmpl
var schemaFS embed.FS

// Deployer pushes the chunk application package to a Vespa config server
type Deployer struct {
	httpClient *http.Client
}

// NewDeployer creates a new Vespa deployer
func NewDeployer() *Deployer {
	return &Deployer{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Deploy builds the application package for the given vector size and
// activates it. Redeploying with the same size is a no-op on the Vespa side.
func (d *Deployer) Deploy(ctx context.Context, configEndpoint, cluster string, dimensions int) error {
	endpoint, err := validateEndpoint(configEndpoint)
	if err != nil {
		return err
	}
	if dimensions <= 0 {
		return fmt.Errorf("vespa schema requires a positive vector size, got %d", dimensions)
	}

	pkg, err := buildAppPackage(cluster, dimensions)
	if err != nil {
		return fmt.Errorf("failed to create app package: %w", err)
	}

	deployURL := endpoint + "/application/v2/tenant/default/prepareandactivate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deployURL, bytes.NewReader(pkg))
	if err != nil {
		return fmt.Errorf("failed to create deploy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/zip")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deployment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deployment failed with status %s: %s", resp.Status, string(body))
	}
	return nil
}

func renderTemplate(name string, data any) ([]byte, error) {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildAppPackage zips services.xml and schemas/chunk.sd
func buildAppPackage(cluster string, dimensions int) ([]byte, error) {
	services, err := renderTemplate("schemas/services.xml", struct{ Cluster string }{cluster})
	if err != nil {
		return nil, err
	}
	schema, err := renderTemplate("schemas/chunk.sd.tmpl", struct{ Dimensions int }{dimensions})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct {
		name string
		body []byte
	}{
		{"services.xml", services},
		{"schemas/chunk.sd", schema},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// validateEndpoint accepts absolute http(s) URLs and strips a trailing slash
func validateEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("vespa endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid vespa endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid vespa endpoint scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("vespa endpoint has no host")
	}
	return strings.TrimSuffix(endpoint, "/"), nil
}
