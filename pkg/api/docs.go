// Package api provides REST API handlers for PaymentIndexor
// @title PaymentIndexor API
// @version 1.0
// @description Read-only REST API over the indexed invoice payment ledger
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/PaymentIndexor
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /
// @schemes http https
package api

//go:generate swag init -g docs.go -o docs --parseDependency --outputTypes go,json
