package memory

import (
	"mybank/internal/repository"
)

var _ repository.TransactionRepository = (*TransactionRepository)(nil)
