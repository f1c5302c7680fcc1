package graphstore

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
)

// Neo4j is a Store backed by a Neo4j database
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.SugaredLogger
}

// NewNeo4j connects to Neo4j and verifies connectivity
func NewNeo4j(ctx context.Context, cfg config.Neo4jConfig, logger *zap.SugaredLogger) (*Neo4j, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.WithHint(
			errors.Wrapf(err, "failed to connect to neo4j at %s", cfg.URI),
			"set graph.backend = \"memory\" to run without Neo4j",
		)
	}
	logger.Infow("Connected to Neo4j", "uri", cfg.URI, "database", cfg.Database)

	s := &Neo4j{driver: driver, database: cfg.Database, logger: logger}
	if err := s.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Neo4j) ensureConstraints(ctx context.Context) error {
	for _, l := range Labels {
		query := "CREATE CONSTRAINT beaver_" + string(l) + "_id IF NOT EXISTS FOR (n:" + string(l) + ") REQUIRE n.id IS UNIQUE"
		if err := s.write(ctx, query, nil); err != nil {
			return errors.Wrapf(err, "failed to create constraint for %s", l)
		}
	}
	return nil
}

func (s *Neo4j) write(ctx context.Context, query string, params map[string]interface{}) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

func (s *Neo4j) writeAll(ctx context.Context, queries []string, params []map[string]interface{}) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for i, q := range queries {
			result, err := tx.Run(ctx, q, params[i])
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Neo4j) UpsertNode(ctx context.Context, node Node) error {
	if err := validate(node.NodeRef); err != nil {
		return err
	}
	props := make(map[string]interface{}, len(node.Props))
	for k, v := range node.Props {
		props[k] = v
	}
	query := `
		MERGE (n:` + string(node.Label) + ` {id: $id})
		SET n = $props, n.id = $id, n.name = $name`
	err := s.write(ctx, query, map[string]interface{}{
		"id":    node.ID,
		"name":  node.Name,
		"props": props,
	})
	return errors.Wrapf(err, "failed to upsert %s", node.Key())
}

func (s *Neo4j) DeleteNode(ctx context.Context, ref NodeRef) error {
	if err := validate(ref); err != nil {
		return err
	}
	err := s.write(ctx, "MATCH (n:"+string(ref.Label)+" {id: $id}) DETACH DELETE n", map[string]interface{}{"id": ref.ID})
	return errors.Wrapf(err, "failed to delete %s", ref.Key())
}

// groupByLabel splits refs by label so each MATCH names one label
func groupByLabel(refs []NodeRef) map[Label][]int64 {
	out := make(map[Label][]int64)
	for _, r := range refs {
		out[r.Label] = append(out[r.Label], r.ID)
	}
	return out
}

func (s *Neo4j) ReplaceEdges(ctx context.Context, from NodeRef, rel RelType, to []NodeRef) error {
	if err := validate(append([]NodeRef{from}, to...)...); err != nil {
		return err
	}
	if !rel.Valid() {
		return errors.Newf("unknown relationship type %q", rel)
	}
	queries := []string{"MATCH (a:" + string(from.Label) + " {id: $id})-[r:" + string(rel) + "]->() DELETE r"}
	params := []map[string]interface{}{{"id": from.ID}}
	for label, ids := range groupByLabel(to) {
		queries = append(queries, `
			MATCH (a:`+string(from.Label)+` {id: $id})
			UNWIND $targets AS tid
			MATCH (b:`+string(label)+` {id: tid})
			MERGE (a)-[:`+string(rel)+`]->(b)`)
		params = append(params, map[string]interface{}{"id": from.ID, "targets": ids})
	}
	err := s.writeAll(ctx, queries, params)
	return errors.Wrapf(err, "failed to replace %s edges from %s", rel, from.Key())
}

func (s *Neo4j) ReplaceIncoming(ctx context.Context, to NodeRef, rel RelType, from []NodeRef) error {
	if err := validate(append([]NodeRef{to}, from...)...); err != nil {
		return err
	}
	if !rel.Valid() {
		return errors.Newf("unknown relationship type %q", rel)
	}
	queries := []string{"MATCH ()-[r:" + string(rel) + "]->(b:" + string(to.Label) + " {id: $id}) DELETE r"}
	params := []map[string]interface{}{{"id": to.ID}}
	for label, ids := range groupByLabel(from) {
		queries = append(queries, `
			MATCH (b:`+string(to.Label)+` {id: $id})
			UNWIND $sources AS sid
			MATCH (a:`+string(label)+` {id: sid})
			MERGE (a)-[:`+string(rel)+`]->(b)`)
		params = append(params, map[string]interface{}{"id": to.ID, "sources": ids})
	}
	err := s.writeAll(ctx, queries, params)
	return errors.Wrapf(err, "failed to replace %s edges into %s", rel, to.Key())
}

func labelPredicate(variable string) string {
	clause := ""
	for i, l := range Labels {
		if i > 0 {
			clause += " OR "
		}
		clause += variable + ":" + string(l)
	}
	return "(" + clause + ")"
}

func (s *Neo4j) Snapshot(ctx context.Context) (*Snapshot, error) {
	nodes, err := neo4j.ExecuteQuery(ctx, s.driver,
		"MATCH (n) WHERE "+labelPredicate("n")+" RETURN labels(n)[0] AS label, n.id AS id, n.name AS name, properties(n) AS props",
		nil, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database), neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read nodes")
	}
	edges, err := neo4j.ExecuteQuery(ctx, s.driver,
		"MATCH (a)-[r]->(b) WHERE "+labelPredicate("a")+" AND "+labelPredicate("b")+
			" RETURN labels(a)[0] AS fromLabel, a.id AS fromID, type(r) AS rel, labels(b)[0] AS toLabel, b.id AS toID",
		nil, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database), neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read edges")
	}

	snap := &Snapshot{}
	for _, rec := range nodes.Records {
		n := Node{
			NodeRef: NodeRef{Label: Label(recordString(rec, "label")), ID: recordInt(rec, "id")},
			Name:    recordString(rec, "name"),
			Props:   map[string]interface{}{},
		}
		if props, ok := rec.Get("props"); ok {
			if m, ok := props.(map[string]interface{}); ok {
				for k, v := range m {
					if k != "id" && k != "name" {
						n.Props[k] = v
					}
				}
			}
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	for _, rec := range edges.Records {
		snap.Edges = append(snap.Edges, Edge{
			From: NodeRef{Label: Label(recordString(rec, "fromLabel")), ID: recordInt(rec, "fromID")},
			Type: RelType(recordString(rec, "rel")),
			To:   NodeRef{Label: Label(recordString(rec, "toLabel")), ID: recordInt(rec, "toID")},
		})
	}
	SortSnapshot(snap)
	return snap, nil
}

func (s *Neo4j) Clear(ctx context.Context) error {
	err := s.write(ctx, "MATCH (n) WHERE "+labelPredicate("n")+" DETACH DELETE n", nil)
	return errors.Wrap(err, "failed to clear graph")
}

func (s *Neo4j) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func recordInt(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	if n, ok := v.(int64); ok {
		return n
	}
	return 0
}
