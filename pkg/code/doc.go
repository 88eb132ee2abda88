// Package code issues short-lived, attempt-bounded verification codes and
// checks submissions against them.
//
// # Overview
//
// A VerificationCode records the hash of a plaintext code together with its
// creation time, validity window and attempt budget. Whether a code is active
// is never stored: IsActive recomputes it from the record and the current time.
//
//	active = not fulfilled
//	     AND now - createdAt < maximumDurationMinutes
//	     AND incorrectAttempts < maximumAttempts
//
// # Basic Usage
//
//	repo := code.NewInMemoryCodeRepository()
//	hasher, _ := codehash.NewHasher("bcrypt")
//	service := code.NewCodeService(
//		repo,
//		hasher,
//		code.WithNotifier(notifier),
//		code.WithSubject("Verification Code"),
//	)
//
//	resp, err := service.SendCode(ctx, code.SendCodeParams{
//		OwnerID:                &ownerID,
//		Email:                  "user@example.com",
//		Length:                 6,
//		MaximumAttempts:        5,
//		MaximumDurationMinutes: 5,
//	})
//
//	err = service.VerifyCode(ctx, code.VerifyCodeParams{
//		OwnerID: ownerID,
//		Email:   "user@example.com",
//		Code:    "482913",
//	})
//	var incorrect *code.IncorrectCodeError
//	if errors.As(err, &incorrect) {
//		fmt.Println(incorrect.Response.RemainingAttempts)
//	}
//
// # Verification Order
//
// VerifyCode selects the newest active code for the email (ErrNotFound if
// none), then checks ownership (ErrForbidden), then compares the hash. Fulfilled,
// expired and exhausted codes all look like ErrNotFound to the caller.
//
// # Locking
//
// Issue and verify for one email run under a Locker. MutexLocker covers a single
// process; RedisLocker covers several replicas sharing one database.
//
// # Repository Pattern
//
//	memRepo := code.NewInMemoryCodeRepository()
//	fileRepo, err := code.NewFileCodeRepository("./data")
//	pgRepo := code.NewPostgresCodeRepository(pool)
//
//	repo, err := code.NewCodeRepository("postgres", code.RepositoryConfig{Pool: pool})
package code
