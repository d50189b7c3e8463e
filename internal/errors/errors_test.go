package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrNotFound, "对局不存在")
	suite.Equal(ErrNotFound, err.Code)
	suite.Equal("资源未找到", err.Message)
	suite.Equal("对局不存在", err.Details)

	err = New(ErrInvalidBet, "倍数超出范围", "最小: 1", "最大: 100")
	suite.Equal("倍数超出范围; 最小: 1; 最大: 100", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidBet, "下注倍数 %d 超出范围 [%d, %d]", 101, 1, 100)
	suite.Equal(ErrInvalidBet, err.Code)
	suite.Equal("下注倍数 101 超出范围 [1, 100]", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
	suite.True(errors.Is(wrappedErr, originalErr))

	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError，保留原始错误码
	appErr := New(ErrNotFound, "对局不存在")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrNotFound, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")

	// 被fmt包装过的AppError同样保留错误码
	chained := fmt.Errorf("外层: %w", New(ErrSpinInProgress))
	suite.Equal(ErrSpinInProgress, Wrap(chained, ErrUnknown).Code)
}

// 测试格式化错误包装
func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("连接超时")
	wrappedErr := Wrapf(originalErr, ErrDatabaseConnect, "数据库 %s 连接失败", "sqlite")
	suite.Equal(ErrDatabaseConnect, wrappedErr.Code)
	suite.Equal("数据库 sqlite 连接失败", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

// 测试错误码判断
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrInsufficientBalance)
	suite.True(Is(err, ErrInsufficientBalance))
	suite.False(Is(err, ErrNotFound))
	suite.False(Is(nil, ErrInsufficientBalance))
	suite.True(Is(fmt.Errorf("spin: %w", err), ErrInsufficientBalance))

	standardErr := errors.New("标准错误")
	suite.False(Is(standardErr, ErrUnknown))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrGameStateError, GetCode(New(ErrGameStateError)))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{
		Code:    ErrNotFound,
		Message: "资源未找到",
	}
	suite.Equal("[1002] 资源未找到", err.Error())

	err.Details = "round: abc"
	suite.Equal("[1002] 资源未找到: round: abc", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrUnknown)
	suite.Equal(originalErr, wrappedErr.Unwrap())

	suite.Nil(New(ErrUnknown).Unwrap())
}

// 测试WithDetails与WithCause
func (suite *ErrorsTestSuite) TestWithDetailsAndCause() {
	err := New(ErrInvalidParam).WithDetails("下注金额不能为空")
	suite.Equal("下注金额不能为空", err.Details)

	cause := errors.New("SQL语法错误")
	err2 := New(ErrDatabaseQuery).WithCause(cause)
	suite.Equal(cause, err2.Cause)
	suite.Equal("SQL语法错误", err2.Details)

	err3 := New(ErrDatabaseQuery, "查询失败").WithCause(cause)
	suite.Equal("查询失败", err3.Details)
}

// 测试退出码
func (suite *ErrorsTestSuite) TestExitCode() {
	suite.Equal(2, New(ErrInvalidBet).ExitCode())
	suite.Equal(2, New(ErrConfigValidate).ExitCode())
	suite.Equal(1, New(ErrDatabaseConnect).ExitCode())
	suite.Equal(1, New(ErrInsufficientBalance).ExitCode())
}

// 测试可重试判断
func (suite *ErrorsTestSuite) TestIsRetryable() {
	for _, code := range []ErrorCode{ErrTimeout, ErrSpinInProgress, ErrDatabaseConnect} {
		suite.True(IsRetryable(New(code)), "错误码 %d 应该是可重试的", code)
	}
	for _, code := range []ErrorCode{ErrInvalidParam, ErrInvalidBet, ErrInsufficientBalance} {
		suite.False(IsRetryable(New(code)), "错误码 %d 不应该是可重试的", code)
	}
	suite.False(IsRetryable(nil))
}

// 测试严重错误判断
func (suite *ErrorsTestSuite) TestIsCritical() {
	for _, code := range []ErrorCode{ErrDatabaseConnect, ErrConfigLoad, ErrGameStateError} {
		suite.True(IsCritical(New(code)), "错误码 %d 应该是严重错误", code)
	}
	for _, code := range []ErrorCode{ErrInvalidParam, ErrNotFound, ErrTimeout} {
		suite.False(IsCritical(New(code)), "错误码 %d 不应该是严重错误", code)
	}
	suite.False(IsCritical(nil))
}

// 测试调用栈捕获
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
}

// 测试未知错误码
func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

// 测试游戏相关错误
func (suite *ErrorsTestSuite) TestGameErrors() {
	gameErrors := map[ErrorCode]string{
		ErrInsufficientBalance: "余额不足",
		ErrInvalidBet:          "无效的投注金额",
		ErrGameStateError:      "游戏状态错误",
		ErrSpinInProgress:      "转轮正在进行中",
		ErrInvalidPayline:      "无效的支付线",
	}

	for code, expectedMsg := range gameErrors {
		suite.Equal(expectedMsg, New(code).Message)
	}
}

// 测试数据库与配置相关错误
func (suite *ErrorsTestSuite) TestInfrastructureErrors() {
	infraErrors := map[ErrorCode]string{
		ErrDatabaseConnect: "数据库连接失败",
		ErrDatabaseQuery:   "数据库查询失败",
		ErrDatabaseInsert:  "数据库插入失败",
		ErrConfigLoad:      "配置加载失败",
		ErrConfigParse:     "配置解析失败",
		ErrConfigValidate:  "配置验证失败",
	}

	for code, expectedMsg := range infraErrors {
		suite.Equal(expectedMsg, New(code).Message)
	}
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
