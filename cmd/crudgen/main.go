// crudgen generates a CRUD API from JSON Schema entity descriptions.
//
//	crudgen generate schemas/product.schema.json
//	crudgen generate --all
//	crudgen watch
//	crudgen db init
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/syssam/crudgen/internal/logx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if logx.L().Core().Enabled(zap.ErrorLevel) {
			logx.L().Error("crudgen failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "crudgen:", err)
		}
		os.Exit(1)
	}
}
