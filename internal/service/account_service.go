package service

import (
	"context"
	"errors"
	"log"
	"time"

	"cafehub/internal/config"
	"cafehub/internal/infrastructure/database"
	"cafehub/internal/model"
	"cafehub/internal/repository"
	"cafehub/internal/telemetry"
	"cafehub/internal/validator"
	"cafehub/pkg/idgen"
	"cafehub/pkg/money"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UpdateAccountRequest 资料补丁，nil 表示不修改；phone 为空串表示清空
type UpdateAccountRequest struct {
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
	Gender   *int8   `json:"gender"`
}

type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Phone    *string `json:"phone"`
	Gender   *int8   `json:"gender"`
}

type RegisterOutcome struct {
	Result    RegisterResult `json:"result"`
	AccountID int64          `json:"account_id,omitempty"`
}

type ChangePasswordRequest struct {
	AccountID       int64  `json:"account_id" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// BalanceRechargedEvent balance.recharged 事件内容
type BalanceRechargedEvent struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
}

type AccountService struct {
	pool        database.Provider
	topics      config.KafkaTopicConfig
	accountRepo *repository.AccountRepository
	outboxRepo  *repository.OutboxRepository
	hashCost    int
	now         func() time.Time
}

func NewAccountService(pool database.Provider, topics config.KafkaTopicConfig) *AccountService {
	return &AccountService{
		pool:        pool,
		topics:      topics,
		accountRepo: repository.NewAccountRepository(pool),
		outboxRepo:  repository.NewOutboxRepository(pool),
		hashCost:    bcrypt.DefaultCost,
		now:         time.Now,
	}
}

// UpdateAccount 按补丁修改用户名、手机号、性别
//
// 格式校验在开事务之前完成；账户行加锁后只写入和当前值不同的字段。
// 用户名预检查之后仍可能被并发注册抢占，这时由唯一索引报错并映射为 UsernameTaken。
func (s *AccountService) UpdateAccount(ctx context.Context, id int64, req *UpdateAccountRequest) (result UpdateResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "account.update", attribute.Int64("cafehub.account_id", id))
	defer func() { telemetry.Finish(ctx, span, "account.update", result.String(), err) }()

	if req == nil {
		return UpdateNoChange, nil
	}
	switch err := validator.Account(validator.AccountFields{Username: req.Username, Phone: req.Phone, Gender: req.Gender}); {
	case errors.Is(err, validator.ErrInvalidPhone):
		return UpdateInvalidPhone, nil
	case errors.Is(err, validator.ErrInvalidGender):
		return UpdateInvalidGender, nil
	case err != nil:
		return UpdateUnknown, invalid("username", err.Error())
	}

	err = s.pool.DB().Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return opError("account.update", id, err)
		}

		patch := repository.AccountPatch{}
		if req.Username != nil && *req.Username != account.Username {
			taken, err := s.accountRepo.UsernameTaken(ctx, tx, *req.Username, id)
			if err != nil {
				return opError("account.update", id, err)
			}
			if taken {
				result = UpdateUsernameTaken
				return errRollback
			}
			patch.Username = repository.Set(*req.Username)
		}
		if req.Phone != nil {
			switch {
			case *req.Phone == "" && account.Phone != nil:
				patch.Phone = repository.Clear[string]()
			case *req.Phone != "" && (account.Phone == nil || *account.Phone != *req.Phone):
				patch.Phone = repository.Set(*req.Phone)
			}
		}
		if req.Gender != nil && (account.Gender == nil || *account.Gender != *req.Gender) {
			patch.Gender = repository.Set(*req.Gender)
		}

		if patch.IsEmpty() {
			result = UpdateNoChange
			return errRollback
		}

		if err := s.accountRepo.ApplyPatch(ctx, tx, id, patch); err != nil {
			if database.IsUniqueViolation(err) {
				result = UpdateUsernameTaken
				return errRollback
			}
			return opError("account.update", id, err)
		}
		result = UpdateUpdated
		return nil
	})

	if errors.Is(err, errRollback) {
		return result, nil
	}
	if err != nil {
		log.Printf("[AccountService] 修改资料失败: account=%d, err=%v", id, err)
		return UpdateUnknown, err
	}
	log.Printf("[AccountService] 资料已修改: account=%d", id)
	return UpdateUpdated, nil
}

// Register 注册顾客账户，余额为 0
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*RegisterOutcome, error) {
	if req == nil {
		return nil, invalid("username", "请求为空")
	}
	switch err := validator.Account(validator.AccountFields{Username: &req.Username, Phone: req.Phone, Gender: req.Gender}); {
	case errors.Is(err, validator.ErrInvalidPhone):
		return &RegisterOutcome{Result: RegisterInvalidPhone}, nil
	case errors.Is(err, validator.ErrInvalidGender):
		return &RegisterOutcome{Result: RegisterInvalidGender}, nil
	case err != nil:
		return nil, invalid("username", err.Error())
	}
	if err := validator.Password(req.Password); err != nil {
		return nil, invalid("password", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, opError("account.register", req.Username, err)
	}

	account := &model.Account{
		Username: req.Username,
		Password: string(hash),
		Gender:   req.Gender,
		JoinTime: dateOf(s.now()),
		Balance:  decimal.Zero,
		UserType: model.UserTypeCustomer,
	}
	if req.Phone != nil && *req.Phone != "" {
		account.Phone = req.Phone
	}

	taken, err := s.accountRepo.UsernameTaken(ctx, nil, req.Username, 0)
	if err != nil {
		return nil, opError("account.register", req.Username, err)
	}
	if taken {
		return &RegisterOutcome{Result: RegisterUsernameTaken}, nil
	}

	if err := s.accountRepo.Create(ctx, nil, account); err != nil {
		if database.IsUniqueViolation(err) {
			return &RegisterOutcome{Result: RegisterUsernameTaken}, nil
		}
		log.Printf("[AccountService] 注册失败: username=%s, err=%v", req.Username, err)
		return nil, opError("account.register", req.Username, err)
	}

	log.Printf("[AccountService] 注册成功: id=%d, username=%s", account.ID, account.Username)
	return &RegisterOutcome{Result: Registered, AccountID: account.ID}, nil
}

// ChangePassword 校验旧密码后修改，只允许顾客
func (s *AccountService) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (PasswordResult, error) {
	if req == nil {
		return PasswordUnknown, invalid("account_id", "请求为空")
	}
	if err := validator.Password(req.NewPassword); err != nil {
		return PasswordUnknown, invalid("new_password", err.Error())
	}

	result := PasswordChanged
	err := s.pool.DB().Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetCustomerForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				err = ErrCustomerNotFound
			}
			return opError("account.password", req.AccountID, err)
		}

		if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.CurrentPassword)) != nil {
			result = PasswordWrong
			return errRollback
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
		if err != nil {
			return opError("account.password", req.AccountID, err)
		}
		if err := s.accountRepo.UpdatePassword(ctx, tx, req.AccountID, string(hash)); err != nil {
			return opError("account.password", req.AccountID, err)
		}
		return nil
	})

	if errors.Is(err, errRollback) {
		return result, nil
	}
	if err != nil {
		return PasswordUnknown, err
	}
	log.Printf("[AccountService] 密码已修改: account=%d", req.AccountID)
	return PasswordChanged, nil
}

// Recharge 顾客充值，返回充值后的余额
func (s *AccountService) Recharge(ctx context.Context, id int64, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	ctx, span := telemetry.StartSpan(ctx, "account.recharge", attribute.Int64("cafehub.account_id", id))
	defer func() { telemetry.Finish(ctx, span, "account.recharge", "recharged", err) }()

	if !amount.IsPositive() {
		return decimal.Zero, invalid("amount", "充值金额必须大于0")
	}
	if !amount.Equal(money.Round(amount)) {
		return decimal.Zero, invalid("amount", "充值金额最多两位小数")
	}

	now := s.now()
	err = s.pool.DB().Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetCustomerForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				err = ErrCustomerNotFound
			}
			return opError("account.recharge", id, err)
		}
		if err := s.accountRepo.Increase(ctx, tx, id, amount); err != nil {
			return opError("account.recharge", id, err)
		}
		balance = account.Balance.Add(amount)

		event := BalanceRechargedEvent{AccountID: id, Amount: amount, Balance: balance}
		if err := writeEvent(ctx, tx, s.outboxRepo, s.topics.Recharge, model.EventBalanceRecharged,
			idgen.GenerateEventKey(), now, event); err != nil {
			return opError("account.outbox", id, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("[AccountService] 充值失败: account=%d, err=%v", id, err)
		return decimal.Zero, err
	}

	log.Printf("[AccountService] 充值成功: account=%d, amount=%s, balance=%s", id, money.Format(amount), money.Format(balance))
	return balance, nil
}
