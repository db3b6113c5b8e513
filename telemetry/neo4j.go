package telemetry

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jTracer stores runs as nodes in a trace graph: retrieval runs spawn
// generation runs, linked by a SPAWNED relationship so a whole query can be
// walked from its retrieval.
type Neo4jTracer struct {
	driver  neo4j.DriverWithContext
	project string
	logger  *log.Logger
}

func NewNeo4jTracer(driver neo4j.DriverWithContext, project string, logger *log.Logger) *Neo4jTracer {
	if logger == nil {
		logger = log.Default()
	}
	return &Neo4jTracer{driver: driver, project: project, logger: logger}
}

func (t *Neo4jTracer) LogRetrieval(ctx context.Context, r Retrieval) string {
	if t.driver == nil {
		return ""
	}

	runID := uuid.NewString()
	texts := make([]string, len(r.Results))
	tokens := 0
	for i, result := range r.Results {
		texts[i] = result.Text
		tokens += len(strings.Fields(result.Text))
	}

	session := t.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		CREATE (r:Run {
			id: $id,
			kind: 'retrieval',
			project: $project,
			query: $query,
			results: $results,
			total_tokens: $tokens,
			user_id: $user_id,
			session_id: $session_id,
			created_at: datetime()
		})
	`, map[string]any{
		"id":         runID,
		"project":    t.project,
		"query":      r.Query,
		"results":    texts,
		"tokens":     tokens,
		"user_id":    orAnonymous(r.UserID),
		"session_id": orUnknown(r.SessionID),
	})
	if err != nil {
		t.logger.Printf("telemetry: log retrieval run: %v", err)
		return ""
	}

	return runID
}

func (t *Neo4jTracer) LogGeneration(ctx context.Context, g Generation) {
	if t.driver == nil {
		return
	}

	session := t.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		runID := uuid.NewString()
		if _, err := tx.Run(ctx, `
			CREATE (r:Run {
				id: $id,
				kind: 'generation',
				project: $project,
				query: $query,
				context: $context,
				response: $response,
				system_prompt: $system_prompt,
				user_prompt: $user_prompt,
				user_id: $user_id,
				session_id: $session_id,
				created_at: datetime()
			})
		`, map[string]any{
			"id":            runID,
			"project":       t.project,
			"query":         g.Query,
			"context":       g.Context,
			"response":      g.Response,
			"system_prompt": g.SystemPrompt,
			"user_prompt":   g.UserPrompt,
			"user_id":       orAnonymous(g.UserID),
			"session_id":    orUnknown(g.SessionID),
		}); err != nil {
			return nil, err
		}

		if g.ParentRunID == "" {
			return nil, nil
		}
		_, err := tx.Run(ctx, `
			MATCH (parent:Run {id: $parent_id}), (child:Run {id: $child_id})
			MERGE (parent)-[:SPAWNED]->(child)
		`, map[string]any{
			"parent_id": g.ParentRunID,
			"child_id":  runID,
		})
		return nil, err
	})
	if err != nil {
		t.logger.Printf("telemetry: log generation run: %v", err)
	}
}

func orAnonymous(userID string) string {
	if userID == "" {
		return "anonymous"
	}
	return userID
}

func orUnknown(sessionID string) string {
	if sessionID == "" {
		return "unknown"
	}
	return sessionID
}

var _ Tracer = (*Neo4jTracer)(nil)
