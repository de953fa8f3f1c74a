package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumn(t *testing.T) {
	for label, want := range map[string]string{
		"test_uint8":              "test_uint8",
		" test_blob\n":            "test_blob",
		"`test_string`":           "test_string",
		`"test_double"`:           "test_double",
		"test_data.test_int64":    "test_int64",
		"`main`.`test_data`.`ID`": "id",
		`"db_test"."Blob_Value"`:  "blob_value",
		"COUNT(*)":                "count(*)",
		"MAX(test_data.id)":       "id)",
		"":                        "",
		"`":                       "",
		".":                       "",
		"测试.值":                    "值",
	} {
		assert.Equal(t, want, NormalizeColumn(label), label)
	}
}

func BenchmarkNormalizeColumn(b *testing.B) {
	labels := []string{
		"id",
		"test_uint8",
		"`test_blob`",
		"test_data.test_float",
		"`main`.`test_data`.`test_string`",
	}
	for i := 0; i < b.N; i++ {
		_ = NormalizeColumn(labels[i%len(labels)])
	}
}
