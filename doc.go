// Package backend provides the UniRoom API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/moderation: Content moderation pipeline and classifier clients
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and migrations
// - internal/cache: Redis client
// - internal/middleware: HTTP middleware (rate limiting, metrics, logging)
// - internal/metrics: Prometheus collectors
// - internal/seed: Development data seeding

// See the individual package documentation for detailed API reference.
package backend
