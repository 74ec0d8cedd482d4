package autodiff

import (
	"fmt"

	"github.com/slate-ml/slate/internal/expr"
)

// UnsupportedOperationError reports an expression construct the derivative
// rules do not cover. Differentiation of such an expression fails as a
// whole; it is never silently treated as zero.
type UnsupportedOperationError struct {
	Expr expr.Expr
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("autodiff: cannot differentiate %s", expr.String(e.Expr))
}

func unsupported(e expr.Expr) error {
	return &UnsupportedOperationError{Expr: e}
}
