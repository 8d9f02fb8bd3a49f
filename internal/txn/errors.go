package txn

import "errors"

// ErrUnsupportedSystem wraps any error decoding a SystemProgram
// instruction's Data field as strict JSON. The original reference
// implementation used eval() to read this field; that is unsafe and
// order-dependent, so solnode rejects anything that isn't a well-formed
// JSON object instead.
var ErrUnsupportedSystem = errors.New("txn: SystemProgram instruction data is not a recognized JSON payload")
