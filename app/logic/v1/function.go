package v1

import (
	"net/http"

	"github.com/insightslm/insightslm/pkg/errors"
	"github.com/insightslm/insightslm/pkg/i18n"
)

const FUNCTION_ERROR_KEY = "error"

// functionError /functions/v1 接口的错误，外部调用方依赖 {"error": message} 的原始文案
func functionError(trace string, status int, message string, err error) *errors.CustomizedError {
	id := i18n.ERROR_INTERNAL
	if status == http.StatusBadRequest {
		id = i18n.ERROR_INVALIDARGUMENT
	}
	return errors.New(trace, id, err).Code(status).WithData(map[string]interface{}{
		FUNCTION_ERROR_KEY: message,
	})
}

// FunctionErrorBody 取出 /functions/v1 接口的状态码与响应体
func FunctionErrorBody(err error) (int, map[string]interface{}) {
	cerr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError, map[string]interface{}{FUNCTION_ERROR_KEY: err.Error()}
	}
	body := map[string]interface{}{}
	for k, v := range cerr.Data() {
		body[k] = v
	}
	if _, ok := body[FUNCTION_ERROR_KEY]; !ok {
		body[FUNCTION_ERROR_KEY] = cerr.Message()
	}
	return cerr.GetCode(), body
}

// authorizeFunctionCaller 使用用户令牌调用时只能操作自己的笔记本，webhook 调用方不受限
func authorizeFunctionCaller(trace string, u UserInfo, notebookID string) error {
	if u.GetUserInfo().User == "" {
		return nil
	}
	if _, err := u.OwnedNotebook(notebookID); err != nil {
		cerr, _ := errors.As(err)
		switch {
		case cerr != nil && cerr.GetCode() == http.StatusNotFound:
			return functionError(trace, http.StatusNotFound, "Notebook not found", err)
		case cerr != nil && cerr.GetCode() == http.StatusForbidden:
			return functionError(trace, http.StatusForbidden, "Forbidden", err)
		default:
			return functionError(trace, http.StatusInternalServerError, "Failed to load notebook", err)
		}
	}
	return nil
}
