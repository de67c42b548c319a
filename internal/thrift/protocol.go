package thrift

import (
	"context"

	athrift "github.com/apache/thrift/lib/go/thrift"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
)

// bgCtx backs the handful of struct-encoding helpers below that cannot fail
// on context cancellation (they never touch the network), so threading a
// real ctx through every call site would add noise without changing behavior.
var bgCtx = context.Background()

// Field identifiers below mirror Hive's public TCLIService.thrift, the
// protocol this backend (and the Python driver's thrift_backend.py) rides on
// top of. Kept as small per-message constant blocks rather than one giant
// generated package, since this client only ever builds and reads a fixed,
// known subset of the service's RPCs.
const (
	fOpenSessionClientProtocol = 1
	fOpenSessionConfiguration  = 4

	fSessionHandleSessionID = 1
	fHandleIDGUID           = 1
	fHandleIDSecret         = 2

	fCloseSessionSessionHandle = 1

	fExecuteStatementSessionHandle = 1
	fExecuteStatementStatement     = 2
	fExecuteStatementConfOverlay   = 3
	fExecuteStatementRunAsync      = 4

	fOperationHandleOperationID    = 1
	fOperationHandleOperationType  = 2
	fOperationHandleHasResultSet   = 3

	fExecResultOperationHandle = 2
	fExecResultDirectResults   = 5

	fOpStatusOperationHandle = 1
	fOpStatusState           = 2

	fCancelOpOperationHandle = 1
	fCloseOpOperationHandle  = 1

	fFetchResultsOperationHandle = 1
	fFetchResultsOrientation     = 2
	fFetchResultsMaxRows         = 3

	fFetchResultsHasMoreRows = 2
	fFetchResultsResults     = 3

	fStatusCode         = 1
	fStatusErrorMessage = 5

	fGetCatalogsSessionHandle = 1
	fGetSchemasSessionHandle  = 1
	fGetSchemasCatalogName    = 2
	fGetSchemasSchemaName     = 3
	fGetTablesSessionHandle   = 1
	fGetTablesCatalogName     = 2
	fGetTablesSchemaName      = 3
	fGetTablesTableName       = 4
	fGetColumnsSessionHandle  = 1
	fGetColumnsCatalogName    = 2
	fGetColumnsSchemaName     = 3
	fGetColumnsTableName      = 4
	fGetColumnsColumnName     = 5

	orientationFetchNext = 2 // TFetchOrientation.FETCH_NEXT
)

// fieldMap is the per-struct decode result this package works with
// internally — a field-id-keyed map rather than a generated type.
type fieldMap = map[int16]field

func handleIdentifier(guid, secret string) []byte {
	raw, err := writeStruct(bgCtx, []field{
		{ID: fHandleIDGUID, Type: athrift.STRING, Value: guid},
		{ID: fHandleIDSecret, Type: athrift.STRING, Value: secret},
	})
	if err != nil {
		panic(err) // encoding a two-string struct cannot fail
	}

	return raw
}

func sessionHandleBytes(s backend.SessionID) []byte {
	inner := handleIdentifier(s.GUID, s.SecretGUID)

	raw, err := writeStruct(bgCtx, []field{
		{ID: fSessionHandleSessionID, Type: athrift.STRUCT, Value: inner},
	})
	if err != nil {
		panic(err)
	}

	return raw
}

func operationHandleBytes(c backend.CommandID) []byte {
	inner := handleIdentifier(c.GUID, c.SecretGUID)

	raw, err := writeStruct(bgCtx, []field{
		{ID: fOperationHandleOperationID, Type: athrift.STRUCT, Value: inner},
		{ID: fOperationHandleOperationType, Type: athrift.I32, Value: int32(0)},
		{ID: fOperationHandleHasResultSet, Type: athrift.BOOL, Value: true},
	})
	if err != nil {
		panic(err)
	}

	return raw
}

// parseHandleIdentifier reads the {guid, secret} pair out of a decoded
// nested struct map (as produced by readValue for a STRUCT field).
func parseHandleIdentifier(m fieldMap) (guid, secret string) {
	if f, ok := m[fHandleIDGUID]; ok {
		guid, _ = f.Value.(string)
	}

	if f, ok := m[fHandleIDSecret]; ok {
		secret, _ = f.Value.(string)
	}

	return guid, secret
}

func parseSessionHandle(m fieldMap, b backend.Backend) backend.SessionID {
	idField, ok := m[fSessionHandleSessionID]
	if !ok {
		return backend.SessionID{}
	}

	nested, _ := idField.Value.(fieldMap)

	guid, secret := parseHandleIdentifier(nested)

	return backend.SessionID{Backend: b, GUID: guid, SecretGUID: secret}
}

func parseOperationHandle(m fieldMap, b backend.Backend) backend.CommandID {
	idField, ok := m[fOperationHandleOperationID]
	if !ok {
		return backend.CommandID{}
	}

	nested, _ := idField.Value.(fieldMap)

	guid, secret := parseHandleIdentifier(nested)

	return backend.CommandID{Backend: b, GUID: guid, SecretGUID: secret}
}

// statusError turns a decoded TStatus struct into a backend error if its
// statusCode indicates failure (ERROR_STATUS = 2), else returns nil.
func statusError(m fieldMap, op string) error {
	codeField, ok := m[fStatusCode]
	if !ok {
		return nil
	}

	code, _ := codeField.Value.(int32)
	if code != 2 { // SUCCESS_STATUS=0, SUCCESS_WITH_INFO_STATUS=1, ERROR_STATUS=2
		return nil
	}

	msg := "thrift RPC failed"
	if f, ok := m[fStatusErrorMessage]; ok {
		if s, ok := f.Value.(string); ok {
			msg = s
		}
	}

	return backend.NewServerOperationError(msg, msg, op)
}
