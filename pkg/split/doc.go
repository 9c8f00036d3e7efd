// Package split 将解析后的 CUE 记录转换为有序的切割计划。
//
// 切点策略固定为帧精度的中点策略：只有一个 INDEX 时取其时间；同时存在
// INDEX 00 与 INDEX 01 时取两者的平均值，把轨道之间的间隙平分给前后两轨。
// 某个物理文件的最后一轨以及整张专辑的最后一轨没有可计算的结束时间，
// 计划中以 OpenEnd 表示，由执行器探测源文件真实时长后补齐。
//
// 本包不做任何 I/O。
package split
