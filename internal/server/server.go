package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"reviewgate/internal/config"
	"reviewgate/internal/domain"
	"reviewgate/internal/engine"
	"reviewgate/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"invalid settings: thresholds must be strictly increasing"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the ReviewGate API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyData, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyData))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("ReviewGate API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Engine)
	registerSettings(group, cfg.Engine)
	registerAssess(group, cfg.Engine)
	registerArtifacts(group, cfg.Engine)
	registerSLA(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func bodyBytes(ctx context.Context) []byte {
	if b, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return b
	}
	return nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve config.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"reason": ve.Reason})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "already resolved") || strings.Contains(lowered, "already completed"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") || strings.Contains(lowered, "must be"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			spec, _ = json.Marshal(api.OpenAPI())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>ReviewGate API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name := input.Body.ID
		if input.Body.Name != nil {
			name = *input.Body.Name
		}
		desc := ""
		if input.Body.Description != nil {
			desc = *input.Body.Description
		}
		p, err := e.InitProject(ctx, input.Body.ID, name, desc, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ProjectResponse, 0, len(items))
		for _, p := range items {
			res = append(res, projectResponse(p))
		}
		return &struct {
			Body []ProjectResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})
}

func registerSettings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/settings",
		Summary:     "Get project threshold settings",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body config.Settings `json:"body"`
	}, error) {
		s, err := e.GetProjectSettings(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body config.Settings `json:"body"`
		}{Body: settingsResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/settings",
		Summary:     "Update project threshold settings",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string       `path:"project_id"`
		Body      config.Patch `json:"body"`
	}) (*struct {
		Body config.Settings `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpdateProjectSettings(ctx, input.ProjectID, input.Body, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body config.Settings `json:"body"`
		}{Body: settingsResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import-settings",
		Method:      http.MethodPut,
		Path:        "/projects/{project_id}/settings",
		Summary:     "Replace project threshold settings",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string          `path:"project_id"`
		Body      config.Settings `json:"body"`
	}) (*struct {
		Body config.Settings `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s := input.Body
		res, err := e.ImportProjectSettings(ctx, input.ProjectID, &s, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body config.Settings `json:"body"`
		}{Body: settingsResponse(res)}, nil
	})
}

func registerAssess(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "assess-risk",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/assess",
		Summary:     "Assess artifact risk without submitting",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string        `path:"project_id"`
		Body      AssessRequest `json:"body"`
	}) (*struct {
		Body AssessmentResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Type == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "type is required", nil)
		}
		a, err := e.AssessRisk(ctx, engine.AssessInput{
			ProjectID:         input.ProjectID,
			ArtifactType:      input.Body.Type,
			AIConfidenceScore: input.Body.AIConfidenceScore,
			FilesAffected:     input.Body.FilesAffected,
			SourceAgent:       input.Body.SourceAgent,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssessmentResponse `json:"body"`
		}{Body: assessmentResponse(a)}, nil
	})
}

func registerArtifacts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "submit-artifact",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/artifacts",
		Summary:       "Submit artifact for review",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string                `path:"project_id"`
		Body      SubmitArtifactRequest `json:"body"`
	}) (*struct {
		Body SubmitResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.SubmitOptions{
			ProjectID:         input.ProjectID,
			Type:              input.Body.Type,
			Title:             input.Body.Title,
			AIConfidenceScore: input.Body.AIConfidenceScore,
			FilesAffected:     input.Body.FilesAffected,
			SourceAgent:       input.Body.SourceAgent,
			ActorID:           actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		res, err := e.SubmitArtifact(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		resp := SubmitResponse{
			Artifact:   artifactResponse(res.Artifact),
			Assessment: assessmentResponse(res.Assessment),
		}
		if res.Tracking != nil {
			t := trackingResponse(*res.Tracking)
			resp.Tracking = &t
		}
		return &struct {
			Body SubmitResponse `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-artifacts",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts",
		Summary:     "List artifacts",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status"`
		Type      string `query:"type"`
		Page      int    `query:"page" default:"1"`
		Limit     int    `query:"limit" default:"20"`
	}) (*struct {
		Body paginatedArtifacts `json:"body"`
	}, error) {
		items, err := e.ListArtifacts(ctx, input.ProjectID, input.Status, input.Type, input.Page, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		page := input.Page
		if page < 1 {
			page = 1
		}
		limit := input.Limit
		if limit < 1 {
			limit = 20
		}
		return &struct {
			Body paginatedArtifacts `json:"body"`
		}{Body: paginatedArtifacts{Items: mapArtifacts(items), Page: page, Limit: limit}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-artifact",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts/{id}",
		Summary:     "Get artifact",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body ArtifactResponse `json:"body"`
	}, error) {
		a, authErr := requireProjectArtifact(ctx, e, input.ProjectID, input.ID)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body ArtifactResponse `json:"body"`
		}{Body: artifactResponse(a)}, nil
	})

	registerReview(api, e, "approve-artifact", "approve", "Approve artifact", e.ApproveArtifact)
	registerReview(api, e, "reject-artifact", "reject", "Reject artifact", e.RejectArtifact)
}

// requireProjectArtifact loads an artifact and rejects ids that belong to a
// different project before any state can change.
func requireProjectArtifact(ctx context.Context, e engine.Engine, projectID, id string) (domain.Artifact, huma.StatusError) {
	a, err := e.GetArtifact(ctx, id)
	if err != nil {
		return a, handleError(err)
	}
	if a.ProjectID != projectID {
		return a, newAPIError(http.StatusNotFound, "not_found", "artifact not found in project", nil)
	}
	return a, nil
}

func registerReview(api huma.API, e engine.Engine, opID, action, summary string, fn func(context.Context, string, string, string) (domain.Artifact, error)) {
	huma.Register(api, huma.Operation{
		OperationID: opID,
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/artifacts/{id}/" + action,
		Summary:     summary,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string        `path:"project_id"`
		ID        string        `path:"id"`
		Body      ReviewRequest `json:"body"`
	}) (*struct {
		Body ArtifactResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, scopeErr := requireProjectArtifact(ctx, e, input.ProjectID, input.ID); scopeErr != nil {
			return nil, scopeErr
		}
		a, err := fn(ctx, input.ID, actorID, input.Body.Note)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ArtifactResponse `json:"body"`
		}{Body: artifactResponse(a)}, nil
	})
}

func registerSLA(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-sla-status",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts/{id}/sla",
		Summary:     "Get live SLA status",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		ID        string `path:"id"`
	}) (*struct {
		Body SLAStatusResponse `json:"body"`
	}, error) {
		if _, scopeErr := requireProjectArtifact(ctx, e, input.ProjectID, input.ID); scopeErr != nil {
			return nil, scopeErr
		}
		s, err := e.GetSLAStatus(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SLAStatusResponse `json:"body"`
		}{Body: slaStatusResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "escalate-sla",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/artifacts/{id}/sla/escalate",
		Summary:     "Escalate an overdue artifact",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectID string          `path:"project_id"`
		ID        string          `path:"id"`
		Body      EscalateRequest `json:"body"`
	}) (*struct {
		Body SLATrackingResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, scopeErr := requireProjectArtifact(ctx, e, input.ProjectID, input.ID); scopeErr != nil {
			return nil, scopeErr
		}
		t, err := e.Escalate(ctx, engine.EscalateOptions{
			ArtifactID:    input.ID,
			EscalatedToID: input.Body.EscalatedToID,
			Reason:        input.Body.Reason,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SLATrackingResponse `json:"body"`
		}{Body: trackingResponse(t)}, nil
	})

	registerTrackingList(api, "list-approaching-slas", "approaching", "List SLAs not yet breached", e.GetApproachingSLAs)
	registerTrackingList(api, "list-breached-slas", "breached", "List breached SLAs", e.GetBreachedSLAs)

	huma.Register(api, huma.Operation{
		OperationID: "get-sla-metrics",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/sla/metrics",
		Summary:     "SLA compliance metrics",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Days      int    `query:"days" default:"30"`
	}) (*struct {
		Body engine.SLAMetrics `json:"body"`
	}, error) {
		m, err := e.GetSLAMetrics(ctx, input.ProjectID, input.Days)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.SLAMetrics `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sweep-slas",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/sla/sweep",
		Summary:     "Re-evaluate open SLA records",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body []engine.SweepResult `json:"body"`
	}, error) {
		res, err := e.SweepSLAs(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if res == nil {
			res = []engine.SweepResult{}
		}
		return &struct {
			Body []engine.SweepResult `json:"body"`
		}{Body: res}, nil
	})
}

func registerTrackingList(api huma.API, opID, segment, summary string, fn func(context.Context, string, int, int) ([]domain.SLATracking, int, error)) {
	huma.Register(api, huma.Operation{
		OperationID: opID,
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/sla/" + segment,
		Summary:     summary,
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Page      int    `query:"page" default:"1"`
		Limit     int    `query:"limit" default:"20"`
	}) (*struct {
		Body paginatedTracking `json:"body"`
	}, error) {
		items, total, err := fn(ctx, input.ProjectID, input.Page, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		page := input.Page
		if page < 1 {
			page = 1
		}
		limit := input.Limit
		if limit < 1 {
			limit = 20
		}
		return &struct {
			Body paginatedTracking `json:"body"`
		}{Body: paginatedTracking{Items: mapTracking(items), Total: total, Page: page, Limit: limit}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/events",
		Summary:     "List audit events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Type      string `query:"type"`
		Limit     int    `query:"limit" default:"50"`
		Cursor    int64  `query:"cursor"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		limit := input.Limit
		if limit < 1 || limit > 500 {
			limit = 50
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit, input.Cursor, input.ProjectID, input.Type, "", "")
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			res = append(res, eventResponse(ev))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: res}, nil
	})
}
