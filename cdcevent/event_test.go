package cdcevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createEvent is an insert against customers as the Postgres connector
// serializes it with schemas disabled.
const createEvent = `{
	"before": null,
	"after": {"id": 1001, "first_name": "Sally", "last_name": "Thomas", "email": "sally.thomas@acme.com"},
	"source": {
		"version": "2.7.3.Final",
		"connector": "postgresql",
		"name": "dbserver1",
		"ts_ms": 1724659200000,
		"snapshot": "false",
		"db": "inventory",
		"schema": "public",
		"table": "customers",
		"lsn": 34078720
	},
	"op": "c",
	"ts_ms": 1724659200123
}`

// snapshotEnvelope is a snapshot read in full envelope form (schemas
// enabled).
const snapshotEnvelope = `{
	"schema": {"type": "struct", "name": "dbserver1.public.customers.Envelope"},
	"payload": {
		"before": null,
		"after": {"id": 1, "email": "first@example.com"},
		"source": {
			"version": "2.7.3.Final",
			"connector": "postgresql",
			"name": "dbserver1",
			"ts_ms": 1724659100000,
			"snapshot": "true",
			"db": "inventory",
			"schema": "public",
			"table": "customers"
		},
		"op": "r",
		"ts_ms": 1724659100042
	}
}`

const updateEvent = `{
	"before": {"id": 1001, "email": "sally.thomas@acme.com"},
	"after": {"id": 1001, "email": "sally@acme.com"},
	"source": {"version": "2.7.3.Final", "connector": "postgresql", "name": "dbserver1",
		"ts_ms": 1, "db": "inventory", "schema": "public", "table": "customers"},
	"op": "u",
	"ts_ms": 2
}`

func TestParse_BarePayload(t *testing.T) {
	env, err := Parse([]byte(createEvent))
	require.NoError(t, err)

	assert.Equal(t, OpCreate, env.Payload.Op)
	assert.Nil(t, env.Payload.Before)
	assert.Equal(t, "postgresql", env.Payload.Source.Connector)
	assert.Equal(t, "customers", env.Payload.Source.Table)
	assert.Equal(t, int64(34078720), env.Payload.Source.LSN)
	assert.False(t, env.Payload.IsSnapshot())

	email, ok := env.Payload.AfterString("email")
	require.True(t, ok)
	assert.Equal(t, "sally.thomas@acme.com", email)

	id, ok := env.Payload.AfterInt64("id")
	require.True(t, ok)
	assert.Equal(t, int64(1001), id)
}

func TestParse_FullEnvelope(t *testing.T) {
	env, err := Parse([]byte(snapshotEnvelope))
	require.NoError(t, err)

	assert.NotEmpty(t, env.Schema, "schema block should be preserved")
	assert.Equal(t, OpRead, env.Payload.Op)
	assert.True(t, env.Payload.IsSnapshot())
}

func TestParse_Update(t *testing.T) {
	env, err := Parse([]byte(updateEvent))
	require.NoError(t, err)

	assert.Equal(t, OpUpdate, env.Payload.Op)

	before, ok := env.Payload.BeforeString("email")
	require.True(t, ok)
	after, ok := env.Payload.AfterString("email")
	require.True(t, ok)
	assert.NotEqual(t, before, after)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty value", ""},
		{"not json", "not json"},
		{"not an object", `[1,2,3]`},
		{"missing op", `{"after":{"id":1},"source":{},"ts_ms":1}`},
		{"unknown op", `{"op":"x","source":{},"ts_ms":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.value))
			assert.Error(t, err)
		})
	}
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey([]byte(`{"payload": {"id": 1001}}`))
	require.NoError(t, err)
	assert.Equal(t, float64(1001), key.Payload["id"])

	bare, err := ParseKey([]byte(`{"id": 7}`))
	require.NoError(t, err)
	assert.Equal(t, float64(7), bare.Payload["id"])

	_, err = ParseKey(nil)
	assert.Error(t, err, "tombstones still carry a key; nil is a protocol violation")
}

func TestAccessors_MissingColumn(t *testing.T) {
	env, err := Parse([]byte(createEvent))
	require.NoError(t, err)

	_, ok := env.Payload.AfterString("no_such_column")
	assert.False(t, ok)

	_, ok = env.Payload.AfterInt64("email")
	assert.False(t, ok, "string column must not coerce to int")
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, ValidatePayload([]byte(createEvent)))
	assert.NoError(t, ValidatePayload([]byte(snapshotEnvelope)), "envelope form validates its payload")
	assert.NoError(t, ValidatePayload([]byte(updateEvent)))
}

func TestValidatePayload_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"op out of range", `{"op":"z","ts_ms":1,"source":{"connector":"postgresql","name":"s","db":"d","table":"t"}}`},
		{"source missing table", `{"op":"c","ts_ms":1,"source":{"connector":"postgresql","name":"s","db":"d"}}`},
		{"after not an object", `{"op":"c","ts_ms":1,"after":42,"source":{"connector":"postgresql","name":"s","db":"d","table":"t"}}`},
		{"ts_ms not a number", `{"op":"c","ts_ms":"then","source":{"connector":"postgresql","name":"s","db":"d","table":"t"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidatePayload([]byte(tt.value)))
		})
	}
}
