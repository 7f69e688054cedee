package rdb

import "encoding/base64"

// emptyDBBase64 is a syntactically valid, empty RDB snapshot used as the
// PSYNC fallback when no snapshot path is configured.
const emptyDBBase64 = "UkVESVMwMDEx+glyZWRpcy12ZXIFNy4yLjD6CnJlZGlzLWJpdHPAQPoFY3RpbWXCbQi8ZfoIdXNlZC1tZW3CsMQQAPoIYW9mLWJhc2XAAP/wbjv+wP9aog=="

// EmptyDB returns the decoded bytes of the built-in empty snapshot.
func EmptyDB() []byte {
	data, err := base64.StdEncoding.DecodeString(emptyDBBase64)
	if err != nil {
		panic("rdb: invalid embedded empty database constant: " + err.Error())
	}
	return data
}
