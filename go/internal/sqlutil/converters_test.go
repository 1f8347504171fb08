package sqlutil

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullableStrings(t *testing.T) {
	assert.False(t, ToSqlString("").Valid)
	assert.Equal(t, sql.NullString{String: "ann@example.com", Valid: true}, ToSqlString("ann@example.com"))
	assert.Equal(t, "-", FromSqlString(sql.NullString{}, "-"))
	assert.Equal(t, "x", FromSqlString(sql.NullString{String: "x", Valid: true}, "-"))
}

func TestNullableTimeAndJSON(t *testing.T) {
	assert.Nil(t, FromSqlTime(sql.NullTime{}))
	now := time.Date(2025, 6, 30, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, now, *FromSqlTime(sql.NullTime{Time: now, Valid: true}))

	assert.False(t, ToNullRawMessage(nil).Valid)
	doc := json.RawMessage(`{"title":"Lamp"}`)
	assert.Equal(t, doc, FromNullRawMessage(ToNullRawMessage(doc)))
	assert.Nil(t, FromNullRawMessage(ToNullRawMessage(json.RawMessage{})))
}
