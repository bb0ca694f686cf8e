// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestListSecurityEventsQuery_CastsUserIDBeforeCoalesce pins the SQL shape of
the security-stream listing.

The userid column is a uuid; coalescing it directly against '' makes Postgres
resolve the common type to uuid and reject the empty-string literal with
22P02 before reading a single row. The query must cast to text first.
*/
func TestListSecurityEventsQuery_CastsUserIDBeforeCoalesce(t *testing.T) {
	assert.Contains(t, listSecurityEventsQuery, "COALESCE(userid::text, '')")
	assert.NotContains(t, listSecurityEventsQuery, "COALESCE(userid, '')")
}
