//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// scenario is the state of one feature scenario: a running clock and the
// last response it gave.
type scenario struct {
	clock *harness
	tmp   string
	http  *http.Client

	status int
	body   []byte
}

func (s *scenario) stop() {
	if s.clock != nil {
		s.clock.Close()
	}

	if s.tmp != "" {
		_ = os.RemoveAll(s.tmp)
	}

	*s = scenario{http: s.http}
}

// InitializeScenario binds the display.feature steps.
func InitializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{http: &http.Client{Timeout: 10 * time.Second}}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.stop()
		return ctx, nil
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		s.stop()
		return ctx, nil
	})

	sc.Step(`^the clock is running at "([^"]*)"$`, s.running)
	sc.Step(`^the clock is running at "([^"]*)" without a dataset$`, s.runningWithoutDataset)
	sc.Step(`^I request GET "([^"]*)"$`, s.get)
	sc.Step(`^I POST "([^"]*)" with body:$`, s.post)
	sc.Step(`^the response status should be (\d+)$`, s.statusIs)
	sc.Step(`^the response should contain "([^"]*)"$`, s.bodyContains)
	sc.Step(`^the response should not contain "([^"]*)"$`, s.bodyLacks)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, s.fieldIs)
}

// boot starts a clock frozen at hhmm, with the test dataset or with a path
// that does not exist.
func (s *scenario) boot(hhmm string, dataset bool) error {
	now, err := at(hhmm)
	if err != nil {
		return err
	}

	if s.tmp, err = os.MkdirTemp("", "authorclock-features-"); err != nil {
		return err
	}

	path := filepath.Join(s.tmp, "missing.json")
	if dataset {
		if path, err = writeDataset(s.tmp); err != nil {
			return err
		}
	}

	s.clock, err = startHarness(harnessConfig{Dataset: path, Now: now})

	return err
}

func (s *scenario) running(hhmm string) error {
	if err := s.boot(hhmm, true); err != nil {
		return err
	}

	if err := s.clock.startErr; err != nil {
		return fmt.Errorf("clock failed to start: %w", err)
	}

	return nil
}

func (s *scenario) runningWithoutDataset(hhmm string) error {
	if err := s.boot(hhmm, false); err != nil {
		return err
	}

	if s.clock.startErr == nil {
		return errors.New("clock started without a dataset")
	}

	return nil
}

func (s *scenario) get(path string) error {
	return s.send(http.MethodGet, path, nil)
}

func (s *scenario) post(path string, doc *godog.DocString) error {
	return s.send(http.MethodPost, path, []byte(doc.Content))
}

func (s *scenario) send(method, path string, payload []byte) error {
	if s.clock == nil {
		return errors.New("no clock is running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.clock.server.URL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	s.body, err = io.ReadAll(resp.Body)

	return err
}

func (s *scenario) statusIs(want int) error {
	if s.status != want {
		return fmt.Errorf("status %d, want %d\n%s", s.status, want, s.body)
	}

	return nil
}

func (s *scenario) bodyContains(text string) error {
	if !bytes.Contains(s.body, []byte(text)) {
		return fmt.Errorf("body lacks %q\n%s", text, s.body)
	}

	return nil
}

func (s *scenario) bodyLacks(text string) error {
	if bytes.Contains(s.body, []byte(text)) {
		return fmt.Errorf("body has %q\n%s", text, s.body)
	}

	return nil
}

// fieldIs follows a dotted path through the JSON body and compares the
// printed value with want.
func (s *scenario) fieldIs(path, want string) error {
	var node any
	if err := json.Unmarshal(s.body, &node); err != nil {
		return fmt.Errorf("body is not JSON: %w\n%s", err, s.body)
	}

	for key := range strings.SplitSeq(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: parent of %q is %v", path, key, node)
		}

		if node, ok = obj[key]; !ok {
			return fmt.Errorf("%s: no field %q\n%s", path, key, s.body)
		}
	}

	if got := fmt.Sprint(node); got != want {
		return fmt.Errorf("%s is %q, want %q", path, got, want)
	}

	return nil
}

func TestFeatures(t *testing.T) {
	status := godog.TestSuite{
		Name:                "authorclock",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			Tags:     os.Getenv("GODOG_TAGS"),
			TestingT: t,
			Strict:   true,
		},
	}.Run()

	if status != 0 {
		t.Fatalf("feature suite exited with status %d", status)
	}
}
