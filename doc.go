// Package extci provides top-level metadata for the extci API.
//
// @title extci API
// @version 0.1.0
// @description Push-triggered CI for a Ruby native extension: webhook intake, job queue, logs and operator controls.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Provide the operator bearer token as `Bearer <token>`.
package extci
