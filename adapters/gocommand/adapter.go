// Package gocommand wires the Google integration command and query handlers
// into a go-command registry and the process-wide dispatcher, so the CRM can
// drive token and sync operations through its message bus.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	servicescommand "github.com/lexfirm/google-services/command"
	servicesquery "github.com/lexfirm/google-services/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver routes queued go-job executions back into the command bus.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Handlers carries the domain services behind the registered messages.
// Tokens is required; nil integration services simply skip their handlers.
type Handlers struct {
	Tokens    servicescommand.TokenService
	Calendar  servicescommand.CalendarService
	Sheets    servicescommand.SheetService
	Documents servicescommand.DocumentService
	Bank      servicescommand.BankStatementService

	AccessTokens  servicesquery.AccessTokenReader
	Connections   servicesquery.ConnectionReader
	SheetMappings servicesquery.SheetMappingReader
	DocumentList  servicesquery.DocumentReader
	AccessLogs    servicesquery.AccessLogReader
}

// RegisterHandlers registers and subscribes every available handler. On any
// failure the already-created subscriptions are torn down.
func RegisterHandlers(adapter *RegistryAdapter, handlers Handlers) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if handlers.Tokens == nil {
		return nil, fmt.Errorf("gocommand: token service is required")
	}

	var subscriptions []commanddispatcher.Subscription
	fail := func(err error) ([]commanddispatcher.Subscription, error) {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
		return nil, err
	}
	addCommand := func(register func() (commanddispatcher.Subscription, error)) error {
		subscription, err := register()
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	registrars := []func() (commanddispatcher.Subscription, error){
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, servicescommand.NewExchangeCodeCommand(handlers.Tokens))
		},
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, servicescommand.NewRevokeTokenCommand(handlers.Tokens))
		},
	}
	if handlers.Calendar != nil {
		registrars = append(registrars,
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewImportEventsCommand(handlers.Calendar))
			},
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewExportEventCommand(handlers.Calendar))
			},
		)
	}
	if handlers.Sheets != nil {
		registrars = append(registrars,
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewRegisterSheetCommand(handlers.Sheets))
			},
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewRemoveSheetCommand(handlers.Sheets))
			},
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewSyncSheetCommand(handlers.Sheets))
			},
		)
	}
	if handlers.Documents != nil {
		registrars = append(registrars,
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewUploadDocumentCommand(handlers.Documents))
			},
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribe(adapter, servicescommand.NewDeleteDocumentCommand(handlers.Documents))
			},
		)
	}
	if handlers.Bank != nil {
		registrars = append(registrars, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, servicescommand.NewImportBankStatementCommand(handlers.Bank))
		})
	}
	if handlers.AccessTokens != nil {
		registrars = append(registrars, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery(adapter, servicesquery.NewGetAccessTokenQuery(handlers.AccessTokens))
		})
	}
	if handlers.Connections != nil {
		registrars = append(registrars,
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribeQuery(adapter, servicesquery.NewConnectionStatusQuery(handlers.Connections))
			},
			func() (commanddispatcher.Subscription, error) {
				return RegisterAndSubscribeQuery(adapter, servicesquery.NewConfigCheckQuery(handlers.Connections))
			},
		)
	}
	if handlers.SheetMappings != nil {
		registrars = append(registrars, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery(adapter, servicesquery.NewListSheetMappingsQuery(handlers.SheetMappings))
		})
	}
	if handlers.DocumentList != nil {
		registrars = append(registrars, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery(adapter, servicesquery.NewListDocumentsQuery(handlers.DocumentList))
		})
	}
	if handlers.AccessLogs != nil {
		registrars = append(registrars, func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribeQuery(adapter, servicesquery.NewListAccessLogsQuery(handlers.AccessLogs))
		})
	}

	for _, register := range registrars {
		if err := addCommand(register); err != nil {
			return fail(err)
		}
	}
	return subscriptions, nil
}
