package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
)

// volatileMeta are envelope meta fields that differ between identical responses.
var volatileMeta = []string{"processing_time_ms", "request_id", "cache_hit"}

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type comparison struct {
	Target    target
	StatusA   int
	StatusB   int
	BodyMatch bool
	Err       error
	DurationA time.Duration
	DurationB time.Duration
}

func (c comparison) differs() bool {
	return c.Err != nil || c.StatusA != c.StatusB || !c.BodyMatch
}

func newCompareCmd(e *env) *cobra.Command {
	var (
		baseA       string
		baseB       string
		targetsPath string
		students    []string
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Diff read endpoints between two deployments",
		Long: `Issue the same authenticated reads against two deployments and report
differences. Used to check a MongoDB-backed deployment against a Postgres-backed
one after migrating documents.

Examples:
  ismisctl compare --a http://pg:8080/api/v1 --b http://mongo:8080/api/v1 --student s-1042
  ismisctl compare --a ... --b ... --targets targets.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets, err := compareTargets(targetsPath, students)
			if err != nil {
				return err
			}
			auth := service.NewAuthService(nil, e.log, service.AuthConfig{
				AccessTokenSecret: e.cfg.JWT.Secret,
				AccessTokenExpiry: e.cfg.JWT.Expiration,
				Issuer:            e.cfg.JWT.Issuer,
			})
			token, _, err := auth.IssueToken(models.IssueTokenRequest{UserID: "ismisctl-compare", Role: models.RoleAdmin}, 10*time.Minute)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: timeout}
			results := make([]comparison, 0, len(targets))
			breaking := 0
			for _, t := range targets {
				res := compareTarget(client, token, baseA, baseB, t)
				if res.differs() && t.Critical {
					breaking++
				}
				results = append(results, res)
			}
			printReport(cmd.OutOrStdout(), results)
			if breaking > 0 {
				return fmt.Errorf("%d critical endpoints differ", breaking)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseA, "a", "", "base URL of the first deployment, including the API prefix")
	cmd.Flags().StringVar(&baseB, "b", "", "base URL of the second deployment")
	cmd.Flags().StringVar(&targetsPath, "targets", "", "JSON file of {targets: [{method, path, critical}]}")
	cmd.Flags().StringSliceVar(&students, "student", nil, "student ids whose documents are compared")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "per-request timeout")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

// compareTargets loads targets from path, or builds the catalog reads plus the
// per-student reads for each id in students.
func compareTargets(path string, students []string) ([]target, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var file struct {
			Targets []target `json:"targets"`
		}
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, err
		}
		if len(file.Targets) == 0 {
			return nil, fmt.Errorf("no targets defined in %s", path)
		}
		return file.Targets, nil
	}
	targets := []target{
		{Method: http.MethodGet, Path: "/courses?limit=100", Critical: true},
		{Method: http.MethodGet, Path: "/students?limit=100", Critical: true},
	}
	for _, id := range students {
		for _, suffix := range []string{"", "/summary", "/transactions", "/notifications"} {
			targets = append(targets, target{Method: http.MethodGet, Path: "/students/" + id + suffix, Critical: suffix != "/notifications"})
		}
	}
	return targets, nil
}

func compareTarget(client *http.Client, token, baseA, baseB string, t target) comparison {
	res := comparison{Target: t}
	bodyA, statusA, durA, err := fetch(client, token, baseA, t)
	if err != nil {
		res.Err = fmt.Errorf("a: %w", err)
		return res
	}
	bodyB, statusB, durB, err := fetch(client, token, baseB, t)
	if err != nil {
		res.Err = fmt.Errorf("b: %w", err)
		return res
	}
	res.StatusA, res.StatusB = statusA, statusB
	res.DurationA, res.DurationB = durA, durB
	res.BodyMatch = bodiesEqual(bodyA, bodyB)
	return res
}

func fetch(client *http.Client, token, base string, t target) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(t.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := t.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	stripVolatile(aj)
	stripVolatile(bj)
	return reflect.DeepEqual(aj, bj)
}

func stripVolatile(v interface{}) {
	env, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	meta, ok := env["meta"].(map[string]interface{})
	if !ok {
		return
	}
	for _, k := range volatileMeta {
		delete(meta, k)
	}
	if len(meta) == 0 {
		delete(env, "meta")
	}
}

func printReport(w io.Writer, results []comparison) {
	differ := 0
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case res.differs():
			status = "DIFF"
		}
		if status != "OK" {
			differ++
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(w, "  a: %d (%s)  b: %d (%s)  body match: %t  critical: %t\n",
			res.StatusA, res.DurationA.Round(time.Millisecond), res.StatusB, res.DurationB.Round(time.Millisecond), res.BodyMatch, res.Target.Critical)
	}
	fmt.Fprintf(w, "%d of %d endpoints differ\n", differ, len(results))
}
