// Package pipeline composes a full change-data-capture test environment:
// a Kafka broker, a Kafka Connect runtime with the Debezium connectors
// installed, and one or both source databases, all joined on a shared
// Docker network.
//
// The environment is started once per test package from TestMain:
//
//	var env *pipeline.Environment
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    env, err = pipeline.New(ctx, pipeline.Options{WithPostgres: true})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = env.Terminate()
//	    os.Exit(code)
//	}
//
// Tests then register connectors against the environment and watch the
// resulting change topics. Everything in this package requires Docker
// and is gated behind the "integration" build tag.
package pipeline
