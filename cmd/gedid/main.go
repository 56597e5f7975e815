// gedid 命令行：按配置装配 ID 引擎，发放与解码 ID，或作为常驻进程暴露指标。
package main

func main() {
	Execute()
}
