// Command melody serves the OTP verification and password reset API.
package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/melody/internal/app"
)

const shutdownGrace = 15 * time.Second

// @title        Melody OTP API
// @version      1.0
// @description  Email one-time-password delivery and verification, password reset and sign-in.
// @license.name MIT
// @license.url  https://mit-license.org/
// @server       http://localhost:3000
func main() {
	a := app.New()
	<-a.Start()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	a.Stop(ctx)
}
