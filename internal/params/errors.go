package params

import "fmt"

// errUnsupportedType roots every rejection this package raises. The warehouse
// package surfaces it wrapped with fmt.Errorf under a message naming the
// offending parameter; it is not wrapped in backend.ErrProgramming.
var errUnsupportedType = fmt.Errorf("sqlwarehouse: parameter value not inferrable")
