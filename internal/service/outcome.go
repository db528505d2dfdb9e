package service

// 每个操作的业务结果。结果值不是错误，不会触发部分回滚。

type PurchaseResult int8

const (
	PurchaseSuccess PurchaseResult = iota
	PurchaseInsufficientStock
	PurchaseInsufficientBalance
)

func (r PurchaseResult) String() string {
	switch r {
	case PurchaseSuccess:
		return "success"
	case PurchaseInsufficientStock:
		return "insufficient_stock"
	case PurchaseInsufficientBalance:
		return "insufficient_balance"
	}
	return "unknown"
}

type ClaimResult int8

const (
	// ClaimUnknown 出错时返回，没有业务结果
	ClaimUnknown ClaimResult = iota
	ClaimClaimed
	ClaimAlreadyClaimed
	ClaimNotFound
	// ClaimConflict 检查通过后条件更新未命中，被并发认领抢先
	ClaimConflict
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimClaimed:
		return "claimed"
	case ClaimAlreadyClaimed:
		return "already_claimed"
	case ClaimNotFound:
		return "not_found"
	case ClaimConflict:
		return "conflict"
	}
	return "unknown"
}

type MarkReadResult int8

const (
	MarkReadUnknown MarkReadResult = iota
	MarkReadRead
	MarkReadAlreadyRead
	MarkReadNotAuthorized
)

func (r MarkReadResult) String() string {
	switch r {
	case MarkReadRead:
		return "read"
	case MarkReadAlreadyRead:
		return "already_read"
	case MarkReadNotAuthorized:
		return "not_authorized"
	}
	return "unknown"
}

type UpdateResult int8

const (
	UpdateUnknown UpdateResult = iota
	UpdateUpdated
	UpdateNoChange
	UpdateUsernameTaken
	UpdateInvalidPhone
	UpdateInvalidGender
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateUpdated:
		return "updated"
	case UpdateNoChange:
		return "no_change"
	case UpdateUsernameTaken:
		return "username_taken"
	case UpdateInvalidPhone:
		return "invalid_phone"
	case UpdateInvalidGender:
		return "invalid_gender"
	}
	return "unknown"
}

type RegisterResult int8

const (
	Registered RegisterResult = iota
	RegisterUsernameTaken
	RegisterInvalidPhone
	RegisterInvalidGender
)

func (r RegisterResult) String() string {
	switch r {
	case Registered:
		return "registered"
	case RegisterUsernameTaken:
		return "username_taken"
	case RegisterInvalidPhone:
		return "invalid_phone"
	case RegisterInvalidGender:
		return "invalid_gender"
	}
	return "unknown"
}

type PasswordResult int8

const (
	PasswordUnknown PasswordResult = iota
	PasswordChanged
	PasswordWrong
)

func (r PasswordResult) String() string {
	switch r {
	case PasswordChanged:
		return "changed"
	case PasswordWrong:
		return "wrong_password"
	}
	return "unknown"
}

type GoodsResult int8

const (
	GoodsAdded GoodsResult = iota
	GoodsUpdated
	GoodsNoChange
	GoodsNameTaken
)

func (r GoodsResult) String() string {
	switch r {
	case GoodsAdded:
		return "added"
	case GoodsUpdated:
		return "updated"
	case GoodsNoChange:
		return "no_change"
	case GoodsNameTaken:
		return "name_taken"
	}
	return "unknown"
}

type SendResult int8

const (
	MessageSent SendResult = iota
	SendSenderNotFound
	SendReceiverNotFound
	SendAdminNotFound
)

func (r SendResult) String() string {
	switch r {
	case MessageSent:
		return "sent"
	case SendSenderNotFound:
		return "sender_not_found"
	case SendReceiverNotFound:
		return "receiver_not_found"
	case SendAdminNotFound:
		return "admin_not_found"
	}
	return "unknown"
}

// 结果在 JSON 中以字符串输出

func (r PurchaseResult) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r ClaimResult) MarshalText() ([]byte, error)    { return []byte(r.String()), nil }
func (r MarkReadResult) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r UpdateResult) MarshalText() ([]byte, error)   { return []byte(r.String()), nil }
func (r RegisterResult) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r PasswordResult) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r GoodsResult) MarshalText() ([]byte, error)    { return []byte(r.String()), nil }
func (r SendResult) MarshalText() ([]byte, error)     { return []byte(r.String()), nil }
