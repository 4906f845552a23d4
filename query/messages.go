package query

import (
	"strings"

	"github.com/lexfirm/google-services/core"
)

const (
	TypeGetAccessToken   = "google.query.token.access"
	TypeConnectionStatus = "google.query.connection.status"
	TypeConfigCheck      = "google.query.config.check"
	TypeListSheets       = "google.query.sheets.list"
	TypeListDocuments    = "google.query.documents.list"
	TypeListAccessLogs   = "google.query.access_log.list"
)

type GetAccessTokenMessage struct {
	Identity core.Identity
	Service  core.GoogleService
}

func (GetAccessTokenMessage) Type() string { return TypeGetAccessToken }

func (m GetAccessTokenMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	return validateService(m.Service)
}

type ConnectionStatusMessage struct {
	Identity core.Identity
	Service  core.GoogleService
}

func (ConnectionStatusMessage) Type() string { return TypeConnectionStatus }

func (m ConnectionStatusMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	return validateService(m.Service)
}

type ConfigCheckMessage struct {
	Identity core.Identity
	Service  core.GoogleService
}

func (ConfigCheckMessage) Type() string { return TypeConfigCheck }

func (m ConfigCheckMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	return validateService(m.Service)
}

type ListSheetMappingsMessage struct {
	Identity core.Identity
}

func (ListSheetMappingsMessage) Type() string { return TypeListSheets }

func (m ListSheetMappingsMessage) Validate() error {
	return validateIdentity(m.Identity)
}

type ListDocumentsMessage struct {
	Identity core.Identity
}

func (ListDocumentsMessage) Type() string { return TypeListDocuments }

func (m ListDocumentsMessage) Validate() error {
	return validateIdentity(m.Identity)
}

type ListAccessLogsMessage struct {
	Identity core.Identity
	Limit    int
}

func (ListAccessLogsMessage) Type() string { return TypeListAccessLogs }

func (m ListAccessLogsMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}

func validateIdentity(id core.Identity) error {
	if strings.TrimSpace(id.UserID) == "" {
		return queryValidationError("user_id", "identity user id is required")
	}
	return nil
}

func validateService(service core.GoogleService) error {
	if _, err := core.ParseGoogleService(string(service)); err != nil {
		return queryValidationError("service", "a valid google service is required")
	}
	return nil
}
