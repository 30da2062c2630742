package mocks

//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/rxtech-lab/argo-signal/internal/trading/provider Exchange
//go:generate mockgen -destination=./mock_history.go -package=mocks github.com/rxtech-lab/argo-signal/internal/history Store
//go:generate mockgen -destination=./mock_notifier.go -package=mocks github.com/rxtech-lab/argo-signal/internal/notify Notifier
