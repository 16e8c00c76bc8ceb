package main

import (
	"go.uber.org/fx"

	"github.com/mct-integration/orderbridge/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
