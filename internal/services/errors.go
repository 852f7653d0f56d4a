package services

import "errors"

var (
	// ErrNotFound indica que o registro solicitado não existe.
	ErrNotFound = errors.New("registro não encontrado")

	// ErrInvalidAmount indica um valor de pagamento nulo ou negativo.
	ErrInvalidAmount = errors.New("valor do pagamento deve ser maior que zero")

	// ErrInstallmentSettled indica tentativa de pagamento sobre parcela quitada.
	ErrInstallmentSettled = errors.New("parcela já está quitada")

	// ErrLoanClosed indica operação sobre empréstimo já encerrado.
	ErrLoanClosed = errors.New("empréstimo já está quitado")

	// ErrAgreementActive indica que o empréstimo já possui acordo vigente.
	ErrAgreementActive = errors.New("empréstimo já possui acordo ativo")

	// ErrAgreementSupersedes indica pagamento sobre o cronograma original
	// enquanto um acordo está vigente.
	ErrAgreementSupersedes = errors.New("acordo ativo substitui o cronograma original")

	// ErrNotRenegotiable indica que o empréstimo não está em condição de
	// renegociação (apenas empréstimos em atraso podem negociar acordo).
	ErrNotRenegotiable = errors.New("apenas empréstimos em atraso podem ser renegociados")

	// ErrInvalidDueDate indica uma nova data de vencimento anterior à atual.
	ErrInvalidDueDate = errors.New("nova data de vencimento deve ser posterior à atual")

	// ErrInvalidPaymentType indica um tipo de pagamento fora do conjunto aceito.
	ErrInvalidPaymentType = errors.New("tipo de pagamento inválido")
)
