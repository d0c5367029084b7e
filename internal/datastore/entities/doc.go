// Package entities defines the GORM models persisted by JobApply.
//
// Tables are named after the web application's schema so the worker and the
// web app can share one database.
package entities
