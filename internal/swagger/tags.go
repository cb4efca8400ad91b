// @title extci API
// @description Push-triggered CI for Ruby native extensions: job status, logs and cancellation.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Provide the operator bearer token as `Bearer <token>`.

// @Tag.name CI Meta
// @Tag.description Operational probes and version metadata.

// @Tag.name GitHub
// @Tag.description Webhook intake that turns pushes into jobs.

// @Tag.name Jobs
// @Tag.description Job status, logs and cancellation.

// @Tag.name Operators
// @Tag.description Authentication for operators.

package swagger
